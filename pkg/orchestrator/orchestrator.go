package orchestrator

import (
	"fmt"

	"github.com/diagomike/RecompBackend/pkg/asset"
	"github.com/diagomike/RecompBackend/pkg/events"
	"github.com/diagomike/RecompBackend/pkg/log"
	"github.com/diagomike/RecompBackend/pkg/storage"
	"github.com/diagomike/RecompBackend/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ValidationError rejects a task submission before any side effect.
// It names the offending contract key or asset.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a submission rejection
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// TaskOrchestrator validates contracts, creates output promises, and
// resolves data dependencies between tasks.
type TaskOrchestrator struct {
	store  storage.Store
	assets *asset.Manager
	broker *events.Broker
	logger zerolog.Logger
}

// NewTaskOrchestrator creates a task orchestrator
func NewTaskOrchestrator(store storage.Store, assets *asset.Manager, broker *events.Broker) *TaskOrchestrator {
	return &TaskOrchestrator{
		store:  store,
		assets: assets,
		broker: broker,
		logger: log.WithComponent("task-orchestrator"),
	}
}

// Submit validates a submission against the module contract, creates
// PENDING output promises, and records the task as QUEUED or BLOCKED.
// Validation happens strictly before any side effect: a rejection
// leaves no task record and no orphan promises.
//
// Module availability is deliberately not checked here; a task against
// a non-AVAILABLE module queues and fails at dispatch.
func (o *TaskOrchestrator) Submit(moduleID string, inputMap map[string]string, config map[string]any) (*types.SubmitResult, error) {
	module, err := o.store.GetModule(moduleID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, validationErrorf("module %s not found", moduleID)
		}
		return nil, err
	}

	// Validate inputs and identify blockers
	var blockingAssets []string
	validatedInputs := make(map[string]string)

	for _, inp := range module.Config.Inputs {
		assetID, ok := inputMap[inp.Key]
		if !ok || assetID == "" {
			return nil, validationErrorf("missing required input: %s", inp.Key)
		}

		a, err := o.store.GetAsset(assetID)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil, validationErrorf("input asset %s not found", assetID)
			}
			return nil, err
		}

		if a.Status == types.AssetStatusFailed {
			return nil, validationErrorf("input asset %s is FAILED", assetID)
		}

		if inp.ContractType == types.ContractTypeAsset && inp.Constraints != nil && len(inp.Constraints.MediaTypes) > 0 {
			if !contains(inp.Constraints.MediaTypes, a.MediaType) {
				return nil, validationErrorf("asset %s type %s not allowed for input %s, expected one of %v",
					a.Label, a.MediaType, inp.Key, inp.Constraints.MediaTypes)
			}
		}

		if a.Status == types.AssetStatusPending {
			blockingAssets = append(blockingAssets, assetID)
		}
		validatedInputs[inp.Key] = assetID
	}

	// Create output promises
	taskID := uuid.New().String()
	outputMap := make(map[string]string)

	for _, out := range module.Config.Outputs {
		label := out.Label
		if label == "" {
			label = out.Key + "_output"
		}
		mediaType := out.MediaType
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}

		assetID, err := o.assets.CreatePending(taskID, label, mediaType)
		if err != nil {
			return nil, fmt.Errorf("failed to create output promise for %s: %w", out.Key, err)
		}
		outputMap[out.Key] = assetID
	}

	status := types.TaskStatusQueued
	if len(blockingAssets) > 0 {
		status = types.TaskStatusBlocked
	}
	if blockingAssets == nil {
		blockingAssets = []string{}
	}

	task := &types.Task{
		ID:             taskID,
		ModuleID:       moduleID,
		Status:         status,
		InputMap:       validatedInputs,
		OutputMap:      outputMap,
		Config:         config,
		BlockingAssets: blockingAssets,
	}
	if err := o.store.CreateTask(task); err != nil {
		return nil, err
	}

	o.logger.Info().Str("task_id", taskID).Str("module_id", moduleID).
		Str("status", string(status)).Int("blockers", len(blockingAssets)).
		Msg("task submitted")
	o.publish(events.EventTaskCreated, taskID, string(status))
	if status == types.TaskStatusQueued {
		o.publish(events.EventTaskQueued, taskID, "all inputs available")
	}

	return &types.SubmitResult{
		TaskID:  taskID,
		Status:  status,
		Outputs: outputMap,
	}, nil
}

// OnAssetAvailable removes the asset from the blocking set of every
// BLOCKED task that waits on it and promotes tasks whose set drains to
// QUEUED. The removal and promotion happen in one store transaction, so
// concurrent deliveries for different blockers of the same task cannot
// lose each other's updates. Repeated delivery of the same event is a
// no-op.
func (o *TaskOrchestrator) OnAssetAvailable(assetID string) error {
	promoted, err := o.store.UnblockTasks(assetID)
	if err != nil {
		return err
	}
	for _, task := range promoted {
		logger := log.WithTaskID(task.ID)
		logger.Info().Msg("task promoted to QUEUED")
		o.publish(events.EventTaskQueued, task.ID, "unblocked by "+assetID)
	}
	return nil
}

// GetTask returns one task record
func (o *TaskOrchestrator) GetTask(taskID string) (*types.Task, error) {
	return o.store.GetTask(taskID)
}

func (o *TaskOrchestrator) publish(eventType events.EventType, taskID, msg string) {
	if o.broker == nil {
		return
	}
	o.broker.Publish(&events.Event{
		Type:     eventType,
		Message:  msg,
		Metadata: map[string]string{"task_id": taskID},
	})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
