package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/diagomike/RecompBackend/pkg/asset"
	"github.com/diagomike/RecompBackend/pkg/events"
	"github.com/diagomike/RecompBackend/pkg/log"
	"github.com/diagomike/RecompBackend/pkg/metrics"
	"github.com/diagomike/RecompBackend/pkg/registry"
	"github.com/diagomike/RecompBackend/pkg/storage"
	"github.com/diagomike/RecompBackend/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultTaskTimeout bounds a task execution when neither the engine
// options nor the task config override it
const DefaultTaskTimeout = 600 * time.Second

// AssetEvents is the narrow interface through which the engine reports
// fulfilled promises back to the task orchestrator
type AssetEvents interface {
	OnAssetAvailable(assetID string) error
}

// Options configures the engine's worker pool
type Options struct {
	Workers      int
	PollInterval time.Duration
	TaskTimeout  time.Duration
}

// Engine is the stateless consumer of QUEUED tasks. Each worker claims
// one task at a time, resolves its inputs to paths, invokes the module
// subprocess, and fulfils or fails the task's output promises.
type Engine struct {
	store  storage.Store
	assets *asset.Manager
	runner registry.ProcessRunner
	notify AssetEvents
	broker *events.Broker
	opts   Options
	logger zerolog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewEngine creates an execution engine
func NewEngine(store storage.Store, assets *asset.Manager, notify AssetEvents, broker *events.Broker, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}
	return &Engine{
		store:  store,
		assets: assets,
		runner: registry.NewRunner(),
		notify: notify,
		broker: broker,
		opts:   opts,
		logger: log.WithComponent("engine"),
		stopCh: make(chan struct{}),
	}
}

// Start launches the worker pool. Each worker drains the queue and then
// sleeps for the poll interval.
func (e *Engine) Start() {
	for i := 0; i < e.opts.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	e.logger.Info().Int("workers", e.opts.Workers).Msg("engine started")
}

// Stop stops the worker pool and waits for in-flight tasks
func (e *Engine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		if e.RunOnce() {
			continue
		}

		select {
		case <-time.After(e.opts.PollInterval):
		case <-e.stopCh:
			return
		}
	}
}

// RunOnce claims and executes at most one QUEUED task. Returns true iff
// a task was processed.
func (e *Engine) RunOnce() bool {
	task, err := e.store.ClaimNextQueued()
	if err != nil {
		if !storage.IsNotFound(err) {
			e.logger.Error().Err(err).Msg("failed to claim task")
		}
		return false
	}

	logger := log.WithTaskID(task.ID)
	logger.Info().Str("module_id", task.ModuleID).Msg("starting task")
	timer := metrics.NewTimer()

	module, err := e.store.GetModule(task.ModuleID)
	if err != nil || module.Status != types.ModuleStatusAvailable {
		e.failTask(task, fmt.Sprintf("Module %s is not AVAILABLE", task.ModuleID), nil)
		return true
	}

	// Task-scoped temp dir for VALUE inputs materialised as files
	tempDir, err := os.MkdirTemp("", "task_"+task.ID+"_")
	if err != nil {
		e.failTask(task, fmt.Sprintf("cannot create temp dir: %v", err), nil)
		return true
	}
	defer os.RemoveAll(tempDir) // best effort

	resolvedInputs := make(map[string]string, len(task.InputMap))
	for key, assetID := range task.InputMap {
		path, err := e.assets.ResolveToPath(assetID, tempDir)
		if err != nil {
			e.failTask(task, fmt.Sprintf("could not resolve input asset %s for key %s: %v", assetID, key, err), nil)
			return true
		}
		resolvedInputs[key] = path
	}

	manifest := &types.Manifest{
		Mode:   types.ManifestModeRun,
		TaskID: task.ID,
		Inputs: resolvedInputs,
		Config: task.Config,
	}
	manifestPath, err := registry.WriteManifest(manifest, task.ID)
	if err != nil {
		e.failTask(task, fmt.Sprintf("cannot write manifest: %v", err), nil)
		return true
	}
	defer os.Remove(manifestPath)

	script := filepath.Join(module.Path, module.Config.EntryPoint)
	logger.Debug().Str("manifest", manifestPath).Msg("executing module")

	result := e.runner.Run(context.Background(), module.InterpreterPath, script, manifestPath, e.taskTimeout(task))
	e.finalize(task, module, result)
	timer.ObserveDuration(metrics.TaskExecutionDuration)
	return true
}

// taskTimeout honours a numeric `timeout` (seconds) in the task config
func (e *Engine) taskTimeout(task *types.Task) time.Duration {
	if v, ok := task.Config["timeout"]; ok {
		if secs, ok := v.(float64); ok && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return e.opts.TaskTimeout
}

// finalize fulfils or fails the task's output promises according to the
// run result and the module's output contract, transitions the task,
// and cascades asset-available events for everything fulfilled.
func (e *Engine) finalize(task *types.Task, module *types.Module, result *types.RunResult) {
	logger := log.WithTaskID(task.ID)

	if !result.Success {
		logger.Warn().Str("error", result.Error).Msg("task failed")
		e.failTask(task, result.Error, result.Logs)
		return
	}

	// The module may nest outputs under an "outputs" object or emit the
	// keys at the top level
	outputs := map[string]any{}
	if result.Result != nil {
		if sub, ok := result.Result["outputs"].(map[string]any); ok {
			outputs = sub
		} else {
			outputs = result.Result
		}
	}

	outputDefs := make(map[string]types.ContractOutput, len(module.Config.Outputs))
	for _, def := range module.Config.Outputs {
		outputDefs[def.Key] = def
	}

	for key, promiseID := range task.OutputMap {
		val, ok := outputs[key]
		if !ok || val == nil {
			e.failAsset(promiseID, "Module did not provide output for key: "+key)
			continue
		}

		contractType := types.ContractTypeValue
		if def, ok := outputDefs[key]; ok && def.ContractType != "" {
			contractType = def.ContractType
		}

		var fulfilErr error
		if contractType == types.ContractTypeAsset {
			// The value is interpreted as a path produced by the module
			fulfilErr = e.assets.FulfillFile(promiseID, fmt.Sprint(val))
		} else {
			fulfilErr = e.assets.FulfillValue(promiseID, val)
		}
		if fulfilErr != nil {
			e.failAsset(promiseID, fmt.Sprintf("Fulfillment failed: %v", fulfilErr))
		}
	}

	task.Status = types.TaskStatusCompleted
	task.FinishedAt = time.Now().UTC()
	task.Logs = result.Logs
	if err := e.store.UpdateTask(task); err != nil {
		logger.Error().Err(err).Msg("failed to persist COMPLETED")
		return
	}

	logger.Info().Msg("task completed")
	metrics.TaskExecutionsTotal.WithLabelValues("completed").Inc()
	e.publishTask(events.EventTaskCompleted, task.ID, "")

	// Cascade after the terminal transition so dependents never observe
	// a RUNNING producer
	for _, promiseID := range task.OutputMap {
		a, err := e.store.GetAsset(promiseID)
		if err != nil || a.Status != types.AssetStatusAvailable {
			continue
		}
		e.publishAsset(events.EventAssetAvailable, promiseID)
		if err := e.notify.OnAssetAvailable(promiseID); err != nil {
			logger.Error().Err(err).Str("asset_id", promiseID).Msg("cascade failed")
		}
	}
}

// failTask transitions the task and every output promise to FAILED
func (e *Engine) failTask(task *types.Task, reason string, logs []string) {
	task.Status = types.TaskStatusFailed
	task.ErrorLog = reason
	if logs != nil {
		task.Logs = logs
	}
	task.FinishedAt = time.Now().UTC()
	logger := log.WithTaskID(task.ID)
	if err := e.store.UpdateTask(task); err != nil {
		logger.Error().Err(err).Msg("failed to persist FAILED")
	}

	for _, promiseID := range task.OutputMap {
		e.failAsset(promiseID, fmt.Sprintf("Parent task %s failed: %s", task.ID, reason))
	}

	metrics.TaskExecutionsTotal.WithLabelValues("failed").Inc()
	e.publishTask(events.EventTaskFailed, task.ID, reason)
}

func (e *Engine) failAsset(assetID, reason string) {
	if err := e.assets.Fail(assetID, reason); err != nil {
		logger := log.WithAssetID(assetID)
		logger.Error().Err(err).Msg("failed to fail asset")
		return
	}
	e.publishAsset(events.EventAssetFailed, assetID)
}

func (e *Engine) publishTask(eventType events.EventType, taskID, msg string) {
	if e.broker == nil {
		return
	}
	e.broker.Publish(&events.Event{
		Type:     eventType,
		Message:  msg,
		Metadata: map[string]string{"task_id": taskID},
	})
}

func (e *Engine) publishAsset(eventType events.EventType, assetID string) {
	if e.broker == nil {
		return
	}
	e.broker.Publish(&events.Event{
		Type:     eventType,
		Metadata: map[string]string{"asset_id": assetID},
	})
}
