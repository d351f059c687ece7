package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/diagomike/RecompBackend/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names, one per collection
	bucketModules = []byte("module_registry")
	bucketAssets  = []byte("assets")
	bucketTasks   = []byte("tasks")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "recomp.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{bucketModules, bucketAssets, bucketTasks}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Module operations

func (s *BoltStore) CreateModule(module *types.Module) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		module.UpdatedAt = time.Now().UTC()
		if module.CreatedAt.IsZero() {
			module.CreatedAt = module.UpdatedAt
		}
		data, err := json.Marshal(module)
		if err != nil {
			return err
		}
		return b.Put([]byte(module.ID), data)
	})
}

func (s *BoltStore) GetModule(id string) (*types.Module, error) {
	var module types.Module
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("module %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &module)
	})
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (s *BoltStore) ListModules() ([]*types.Module, error) {
	var modules []*types.Module
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		return b.ForEach(func(k, v []byte) error {
			var module types.Module
			if err := json.Unmarshal(v, &module); err != nil {
				return err
			}
			modules = append(modules, &module)
			return nil
		})
	})
	return modules, err
}

func (s *BoltStore) UpdateModule(module *types.Module) error {
	return s.CreateModule(module) // Same as create (upsert)
}

// AppendModuleLog appends one line to a module's installation logs
func (s *BoltStore) AppendModuleLog(id string, line string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("module %s: %w", id, ErrNotFound)
		}
		var module types.Module
		if err := json.Unmarshal(data, &module); err != nil {
			return err
		}
		module.InstallationLogs = append(module.InstallationLogs, line)
		module.UpdatedAt = time.Now().UTC()
		updated, err := json.Marshal(&module)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
}

// Asset operations

func (s *BoltStore) CreateAsset(asset *types.Asset) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssets)
		asset.UpdatedAt = time.Now().UTC()
		if asset.CreatedAt.IsZero() {
			asset.CreatedAt = asset.UpdatedAt
		}
		data, err := json.Marshal(asset)
		if err != nil {
			return err
		}
		return b.Put([]byte(asset.ID), data)
	})
}

func (s *BoltStore) GetAsset(id string) (*types.Asset, error) {
	var asset types.Asset
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssets)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("asset %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &asset)
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *BoltStore) ListAssets() ([]*types.Asset, error) {
	var assets []*types.Asset
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssets)
		return b.ForEach(func(k, v []byte) error {
			var asset types.Asset
			if err := json.Unmarshal(v, &asset); err != nil {
				return err
			}
			assets = append(assets, &asset)
			return nil
		})
	})
	return assets, err
}

func (s *BoltStore) UpdateAsset(asset *types.Asset) error {
	return s.CreateAsset(asset)
}

// Task operations

func (s *BoltStore) CreateTask(task *types.Task) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTasks)
		task.UpdatedAt = time.Now().UTC()
		if task.CreatedAt.IsZero() {
			task.CreatedAt = task.UpdatedAt
		}
		data, err := json.Marshal(task)
		if err != nil {
			return err
		}
		return b.Put([]byte(task.ID), data)
	})
}

func (s *BoltStore) GetTask(id string) (*types.Task, error) {
	var task types.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTasks)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &task)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *BoltStore) ListTasks() ([]*types.Task, error) {
	var tasks []*types.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTasks)
		return b.ForEach(func(k, v []byte) error {
			var task types.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return err
			}
			tasks = append(tasks, &task)
			return nil
		})
	})
	return tasks, err
}

func (s *BoltStore) UpdateTask(task *types.Task) error {
	return s.CreateTask(task)
}

// UnblockTasks removes the asset from the blocking set of every BLOCKED
// task and promotes tasks whose set drains empty to QUEUED. Removal and
// promotion happen inside a single write transaction, so concurrent
// deliveries for different blockers of the same task serialise instead
// of overwriting each other's blocking sets.
func (s *BoltStore) UnblockTasks(assetID string) ([]*types.Task, error) {
	var promoted []*types.Task
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTasks)

		// Buffer writes; the bucket must not change under ForEach
		updates := make(map[string][]byte)
		err := b.ForEach(func(k, v []byte) error {
			var task types.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return err
			}
			if task.Status != types.TaskStatusBlocked {
				return nil
			}
			remaining := make([]string, 0, len(task.BlockingAssets))
			for _, blocker := range task.BlockingAssets {
				if blocker != assetID {
					remaining = append(remaining, blocker)
				}
			}
			if len(remaining) == len(task.BlockingAssets) {
				return nil
			}
			task.BlockingAssets = remaining
			task.UpdatedAt = time.Now().UTC()
			if len(remaining) == 0 {
				task.Status = types.TaskStatusQueued
				t := task
				promoted = append(promoted, &t)
			}
			data, err := json.Marshal(&task)
			if err != nil {
				return err
			}
			updates[string(k)] = data
			return nil
		})
		if err != nil {
			return err
		}
		for k, data := range updates {
			if err := b.Put([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// ClaimNextQueued atomically claims the oldest QUEUED task (FIFO by
// created_at) and transitions it to RUNNING. The read-and-update happens
// inside a single write transaction so a task is claimed by at most one
// worker.
func (s *BoltStore) ClaimNextQueued() (*types.Task, error) {
	var claimed *types.Task
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTasks)
		var oldest *types.Task
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var task types.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return err
			}
			if task.Status != types.TaskStatusQueued {
				continue
			}
			if oldest == nil || task.CreatedAt.Before(oldest.CreatedAt) {
				t := task
				oldest = &t
			}
		}
		if oldest == nil {
			return ErrNotFound
		}

		now := time.Now().UTC()
		oldest.Status = types.TaskStatusRunning
		oldest.StartedAt = now
		oldest.UpdatedAt = now

		data, err := json.Marshal(oldest)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(oldest.ID), data); err != nil {
			return err
		}
		claimed = oldest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}
