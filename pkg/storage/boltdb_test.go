package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagomike/RecompBackend/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestModuleCRUD(t *testing.T) {
	store := newTestStore(t)

	module := &types.Module{
		ID:     "resize_image",
		Status: types.ModuleStatusDetected,
		Path:   "/modules/resize_image",
		Config: &types.ModuleConfig{
			Name:       "resize_image",
			EntryPoint: "main.py",
		},
		InstallationLogs: []string{},
	}
	require.NoError(t, store.CreateModule(module))
	assert.False(t, module.CreatedAt.IsZero())

	got, err := store.GetModule("resize_image")
	require.NoError(t, err)
	assert.Equal(t, types.ModuleStatusDetected, got.Status)
	assert.Equal(t, "main.py", got.Config.EntryPoint)

	got.Status = types.ModuleStatusAvailable
	require.NoError(t, store.UpdateModule(got))

	got, err = store.GetModule("resize_image")
	require.NoError(t, err)
	assert.Equal(t, types.ModuleStatusAvailable, got.Status)

	modules, err := store.ListModules()
	require.NoError(t, err)
	assert.Len(t, modules, 1)
}

func TestGetModuleNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetModule("nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestAppendModuleLog(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateModule(&types.Module{
		ID:               "mod",
		Status:           types.ModuleStatusInstalling,
		InstallationLogs: []string{},
	}))

	require.NoError(t, store.AppendModuleLog("mod", "[Setup] Venv created."))
	require.NoError(t, store.AppendModuleLog("mod", "[Pip] Installing requests"))

	got, err := store.GetModule("mod")
	require.NoError(t, err)
	require.Len(t, got.InstallationLogs, 2)
	assert.Equal(t, "[Setup] Venv created.", got.InstallationLogs[0])
	assert.Equal(t, "[Pip] Installing requests", got.InstallationLogs[1])

	err = store.AppendModuleLog("missing", "line")
	assert.True(t, IsNotFound(err))
}

func TestAssetCRUD(t *testing.T) {
	store := newTestStore(t)

	asset := &types.Asset{
		ID:        "a1",
		Label:     "input.png",
		Kind:      types.AssetKindFile,
		Status:    types.AssetStatusPending,
		MediaType: "image/png",
	}
	require.NoError(t, store.CreateAsset(asset))

	got, err := store.GetAsset("a1")
	require.NoError(t, err)
	assert.Equal(t, types.AssetStatusPending, got.Status)

	got.Status = types.AssetStatusAvailable
	got.StoragePath = "/storage/generated/t1/out.png"
	require.NoError(t, store.UpdateAsset(got))

	got, err = store.GetAsset("a1")
	require.NoError(t, err)
	assert.Equal(t, types.AssetStatusAvailable, got.Status)
	assert.Equal(t, "/storage/generated/t1/out.png", got.StoragePath)

	_, err = store.GetAsset("missing")
	assert.True(t, IsNotFound(err))
}

func TestUnblockTasks(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateTask(&types.Task{
		ID:             "t-two-blockers",
		Status:         types.TaskStatusBlocked,
		BlockingAssets: []string{"a1", "a2"},
	}))
	require.NoError(t, store.CreateTask(&types.Task{
		ID:             "t-one-blocker",
		Status:         types.TaskStatusBlocked,
		BlockingAssets: []string{"a1"},
	}))
	require.NoError(t, store.CreateTask(&types.Task{
		ID:             "t-queued",
		Status:         types.TaskStatusQueued,
		BlockingAssets: []string{},
	}))

	promoted, err := store.UnblockTasks("a1")
	require.NoError(t, err)
	require.Len(t, promoted, 1)
	assert.Equal(t, "t-one-blocker", promoted[0].ID)
	assert.Equal(t, types.TaskStatusQueued, promoted[0].Status)

	// Drained task is persisted as QUEUED
	got, err := store.GetTask("t-one-blocker")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusQueued, got.Status)
	assert.Empty(t, got.BlockingAssets)

	// Partially drained task stays BLOCKED with the remaining blocker
	got, err = store.GetTask("t-two-blockers")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusBlocked, got.Status)
	assert.Equal(t, []string{"a2"}, got.BlockingAssets)

	// Unknown asset touches nothing
	promoted, err = store.UnblockTasks("unknown")
	require.NoError(t, err)
	assert.Empty(t, promoted)
}

func TestUnblockTasksConcurrent(t *testing.T) {
	store := newTestStore(t)

	const n = 20
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("t%02d", i)
		require.NoError(t, store.CreateTask(&types.Task{
			ID:             id,
			Status:         types.TaskStatusBlocked,
			BlockingAssets: []string{id + "-left", id + "-right"},
		}))
	}

	// Both blockers of every task resolve at the same time from
	// different goroutines; no update may be lost.
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("t%02d", i)
		for _, blocker := range []string{id + "-left", id + "-right"} {
			wg.Add(1)
			go func(blocker string) {
				defer wg.Done()
				_, err := store.UnblockTasks(blocker)
				assert.NoError(t, err)
			}(blocker)
		}
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("t%02d", i)
		got, err := store.GetTask(id)
		require.NoError(t, err)
		assert.Equal(t, types.TaskStatusQueued, got.Status, "task %s still blocked", id)
		assert.Empty(t, got.BlockingAssets)
	}
}

func TestClaimNextQueuedFIFO(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().UTC()
	require.NoError(t, store.CreateTask(&types.Task{
		ID:        "t-new",
		Status:    types.TaskStatusQueued,
		CreatedAt: base.Add(2 * time.Second),
	}))
	require.NoError(t, store.CreateTask(&types.Task{
		ID:        "t-old",
		Status:    types.TaskStatusQueued,
		CreatedAt: base,
	}))
	require.NoError(t, store.CreateTask(&types.Task{
		ID:        "t-blocked",
		Status:    types.TaskStatusBlocked,
		CreatedAt: base.Add(-time.Hour),
	}))

	claimed, err := store.ClaimNextQueued()
	require.NoError(t, err)
	assert.Equal(t, "t-old", claimed.ID)
	assert.Equal(t, types.TaskStatusRunning, claimed.Status)
	assert.False(t, claimed.StartedAt.IsZero())

	// The claim must be persisted, not just returned
	got, err := store.GetTask("t-old")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusRunning, got.Status)

	claimed, err = store.ClaimNextQueued()
	require.NoError(t, err)
	assert.Equal(t, "t-new", claimed.ID)

	_, err = store.ClaimNextQueued()
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClaimNextQueuedConcurrent(t *testing.T) {
	store := newTestStore(t)

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, store.CreateTask(&types.Task{
			ID:        string(rune('a' + i)),
			Status:    types.TaskStatusQueued,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	results := make(chan string, n*2)
	for i := 0; i < n*2; i++ {
		go func() {
			task, err := store.ClaimNextQueued()
			if err != nil {
				results <- ""
				return
			}
			results <- task.ID
		}()
	}

	claimed := make(map[string]bool)
	for i := 0; i < n*2; i++ {
		id := <-results
		if id == "" {
			continue
		}
		assert.False(t, claimed[id], "task %s claimed twice", id)
		claimed[id] = true
	}
	assert.Len(t, claimed, n)
}
