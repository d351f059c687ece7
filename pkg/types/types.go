package types

import (
	"encoding/json"
	"time"
)

// ModuleStatus represents the lifecycle state of a registered module
type ModuleStatus string

const (
	ModuleStatusDetected   ModuleStatus = "DETECTED"
	ModuleStatusInstalling ModuleStatus = "INSTALLING"
	ModuleStatusTesting    ModuleStatus = "TESTING"
	ModuleStatusAvailable  ModuleStatus = "AVAILABLE"
	ModuleStatusError      ModuleStatus = "ERROR"
)

// ContractType defines how a module input or output is bound
type ContractType string

const (
	ContractTypeAsset ContractType = "ASSET"
	ContractTypeValue ContractType = "VALUE"
)

// Constraints restricts the assets that may be bound to a contract input
type Constraints struct {
	MediaTypes []string `json:"media_types,omitempty"`
}

// ContractInput is one declared input of a module manifest
type ContractInput struct {
	Key          string       `json:"key"`
	Label        string       `json:"label,omitempty"`
	ContractType ContractType `json:"contract_type"`
	Type         string       `json:"type,omitempty"`
	Description  string       `json:"description,omitempty"`
	Constraints  *Constraints `json:"constraints,omitempty"`
}

// ContractOutput is one declared output of a module manifest
type ContractOutput struct {
	Key          string       `json:"key"`
	Label        string       `json:"label,omitempty"`
	ContractType ContractType `json:"contract_type"`
	MediaType    string       `json:"media_type,omitempty"`
	Description  string       `json:"description,omitempty"`
}

// ModuleConfig is the parsed module.json manifest of a module directory
type ModuleConfig struct {
	Name       string           `json:"name"`
	Version    string           `json:"version"`
	EntryPoint string           `json:"entry_point"`
	Inputs     []ContractInput  `json:"inputs"`
	Outputs    []ContractOutput `json:"outputs"`
}

// Capabilities is the input/output contract projected from a module config
type Capabilities struct {
	Inputs  []ContractInput  `json:"inputs"`
	Outputs []ContractOutput `json:"outputs"`
}

// Module represents an installed, versioned computation unit
type Module struct {
	ID               string        `json:"id"`
	Status           ModuleStatus  `json:"status"`
	Path             string        `json:"path"`
	VersionHash      string        `json:"version_hash"`
	Config           *ModuleConfig `json:"config"`
	Capabilities     *Capabilities `json:"capabilities,omitempty"`
	InterpreterPath  string        `json:"interpreter_path,omitempty"`
	EnvPath          string        `json:"env_path,omitempty"`
	InstallationLogs []string      `json:"installation_logs"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// AssetKind distinguishes file-backed assets from inline values
type AssetKind string

const (
	AssetKindFile  AssetKind = "FILE"
	AssetKindValue AssetKind = "VALUE"
)

// AssetStatus represents the lifecycle state of an asset.
// PENDING may move to AVAILABLE or FAILED; both are terminal.
type AssetStatus string

const (
	AssetStatusPending   AssetStatus = "PENDING"
	AssetStatusAvailable AssetStatus = "AVAILABLE"
	AssetStatusFailed    AssetStatus = "FAILED"
)

// Asset represents a datum produced by or ingested into the system
type Asset struct {
	ID            string          `json:"id"`
	Label         string          `json:"label"`
	Kind          AssetKind       `json:"kind"`
	Status        AssetStatus     `json:"status"`
	MediaType     string          `json:"media_type"`
	StoragePath   string          `json:"storage_path,omitempty"`
	ValueContent  json.RawMessage `json:"value_content,omitempty"`
	CreatedByTask string          `json:"created_by_task,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Terminal reports whether the asset has reached a final state
func (a *Asset) Terminal() bool {
	return a.Status == AssetStatusAvailable || a.Status == AssetStatusFailed
}

// TaskStatus represents the state of a task
type TaskStatus string

const (
	TaskStatusCreated   TaskStatus = "CREATED"
	TaskStatusBlocked   TaskStatus = "BLOCKED"
	TaskStatusQueued    TaskStatus = "QUEUED"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusFailed    TaskStatus = "FAILED"
)

// Task represents one planned invocation of one module.
// InputMap binds the module's declared input keys to asset IDs; OutputMap
// binds output keys to promise assets created with this task as producer.
type Task struct {
	ID             string            `json:"id"`
	ModuleID       string            `json:"module_id"`
	Status         TaskStatus        `json:"status"`
	InputMap       map[string]string `json:"input_map"`
	OutputMap      map[string]string `json:"output_map"`
	Config         map[string]any    `json:"config,omitempty"`
	BlockingAssets []string          `json:"blocking_assets"`
	ErrorLog       string            `json:"error_log,omitempty"`
	Logs           []string          `json:"logs,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	StartedAt      time.Time         `json:"started_at,omitempty"`
	FinishedAt     time.Time         `json:"finished_at,omitempty"`
}

// Manifest is the execution envelope handed to a module subprocess.
// Inputs maps declared input keys to filesystem paths, except in test
// mode where the registry embeds the test payload directly.
type Manifest struct {
	Mode   string         `json:"mode"`
	TaskID string         `json:"task_id"`
	Inputs any            `json:"inputs"`
	Config map[string]any `json:"config"`
}

const (
	ManifestModeRun  = "run"
	ManifestModeTest = "test"

	// TestRunTaskID is the literal task id used for registry self-tests
	TestRunTaskID = "TEST_RUN"
)

// RunResult captures the outcome of one module subprocess invocation
type RunResult struct {
	Success bool
	Logs    []string
	Result  map[string]any
	Error   string
}

// SubmitResult is returned to callers of the task orchestrator
type SubmitResult struct {
	TaskID  string            `json:"task_id"`
	Status  TaskStatus        `json:"status"`
	Outputs map[string]string `json:"outputs"`
}
