/*
Package storage provides BoltDB-backed state persistence for the task runner.

The storage package implements the Store interface using BoltDB as the
underlying database, providing ACID transactions for the three persistent
collections: module registry, assets, and tasks. All data is serialized
as JSON and stored in separate buckets.

# Architecture

	┌────────────────── BOLTDB STORAGE ───────────────────┐
	│                                                       │
	│  BoltStore                                            │
	│  - File: <dataDir>/recomp.db                          │
	│  - Transactions: ACID with fsync                      │
	│                                                       │
	│  Bucket Structure                                     │
	│  ┌───────────────────────────────┐                   │
	│  │ module_registry (module name) │                   │
	│  │ assets          (asset id)    │                   │
	│  │ tasks           (task id)     │                   │
	│  └───────────────────────────────┘                   │
	│                                                       │
	│  Transaction Management                               │
	│  - Read: db.View()   - Concurrent reads               │
	│  - Write: db.Update() - Serialized writes             │
	└───────────────────────────────────────────────────────┘

# Queue Claim and Unblocking

Two operations must be atomic across workers, and both run inside a
single write transaction that BoltDB serializes:

  - ClaimNextQueued scans for the oldest QUEUED task and flips it to
    RUNNING, so any given task is claimed by at most one worker even
    with N engine workers polling concurrently.
  - UnblockTasks removes an asset from every blocking set and promotes
    drained tasks to QUEUED, so two cascades delivering different
    blockers of the same task cannot overwrite each other.

# Design Patterns

Upsert Pattern:
  - Create and Update use the same Put operation
  - No separate "exists" check needed

Error Wrapping:
  - Missing records wrap the ErrNotFound sentinel, checkable with
    storage.IsNotFound

# Integration Points

This package integrates with:

  - pkg/registry: Module lifecycle state transitions
  - pkg/asset: Asset record persistence
  - pkg/orchestrator: Task creation and promotion
  - pkg/engine: Queue claim and task finalisation
  - pkg/types: All entity definitions

# See Also

  - pkg/types for all entity definitions
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage
