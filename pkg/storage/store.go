package storage

import (
	"errors"

	"github.com/diagomike/RecompBackend/pkg/types"
)

// ErrNotFound is returned when a record does not exist in its collection
var ErrNotFound = errors.New("record not found")

// Store defines the interface for orchestrator state storage.
// This is implemented by BoltDB-backed storage.
type Store interface {
	// Modules (keyed by module name)
	CreateModule(module *types.Module) error
	GetModule(id string) (*types.Module, error)
	ListModules() ([]*types.Module, error)
	UpdateModule(module *types.Module) error
	AppendModuleLog(id string, line string) error

	// Assets
	CreateAsset(asset *types.Asset) error
	GetAsset(id string) (*types.Asset, error)
	ListAssets() ([]*types.Asset, error)
	UpdateAsset(asset *types.Asset) error

	// Tasks
	CreateTask(task *types.Task) error
	GetTask(id string) (*types.Task, error)
	ListTasks() ([]*types.Task, error)
	UpdateTask(task *types.Task) error

	// UnblockTasks removes the asset from the blocking set of every
	// BLOCKED task and promotes tasks whose set drains empty to QUEUED,
	// all within a single write transaction. Returns the promoted tasks.
	UnblockTasks(assetID string) ([]*types.Task, error)

	// ClaimNextQueued atomically transitions the oldest QUEUED task to
	// RUNNING and returns it. Returns ErrNotFound when the queue is empty.
	ClaimNextQueued() (*types.Task, error)

	// Utility
	Close() error
}

// IsNotFound reports whether err indicates a missing record
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
