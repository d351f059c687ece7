/*
Package types defines the core data structures used throughout the task runner.

This package contains all fundamental types of the domain model: modules,
assets, tasks, the module contract, the execution manifest, and the run
result. These types are used by all other packages for state management,
API responses, and orchestration logic.

# Core Types

Module Registry:
  - Module: An installed, versioned computation unit on disk
  - ModuleStatus: DETECTED, INSTALLING, TESTING, AVAILABLE, ERROR
  - ModuleConfig: The parsed module.json manifest
  - ContractInput / ContractOutput: Declared inputs and outputs, each
    tagged ASSET or VALUE

Assets:
  - Asset: A datum (file or inline value) tracked through its lifecycle
  - AssetKind: FILE or VALUE
  - AssetStatus: PENDING, AVAILABLE, FAILED

Tasks:
  - Task: One planned invocation of one module
  - TaskStatus: CREATED, BLOCKED, QUEUED, RUNNING, COMPLETED, FAILED

Execution:
  - Manifest: The envelope written for a module subprocess
  - RunResult: Captured logs, parsed result, and outcome of one run

# State Machines

Assets move monotonically:

	PENDING → AVAILABLE
	        → FAILED

AVAILABLE and FAILED are terminal; a terminal asset is never mutated.
An asset in PENDING always carries the id of its producing task.

Tasks move monotonically forward:

	CREATED → BLOCKED → QUEUED → RUNNING → COMPLETED
	        → QUEUED                     → FAILED

A task is QUEUED exactly when its blocking set is empty and it has not
yet reached a terminal state. BLOCKED never follows QUEUED.

# Design Patterns

Enumeration Pattern:

	All enums use typed string constants for safety and clarity:
	  type TaskStatus string
	  const (
	      TaskStatusQueued  TaskStatus = "QUEUED"
	      TaskStatusRunning TaskStatus = "RUNNING"
	  )

Open Payloads:

	Module results and asset values are arbitrary JSON. They are carried
	as json.RawMessage / map[string]any and interpreted at finalisation
	time according to the declared contract type.

# See Also

  - pkg/storage for persistence of these types
  - pkg/registry for the module lifecycle
  - pkg/orchestrator and pkg/engine for the task lifecycle
*/
package types
