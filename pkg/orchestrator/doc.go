/*
Package orchestrator validates task submissions and resolves data
dependencies between tasks.

Submission validates the input mapping against the module contract,
materialises one PENDING promise asset per declared output, and records
the task as QUEUED (all inputs AVAILABLE) or BLOCKED (some input still
PENDING). Validation is side-effect free: a rejected submission creates
neither a task record nor orphan promises.

Promotion is event driven. When the execution engine fulfils a promise
it calls OnAssetAvailable, which drains the asset from the blocking set
of every waiting task and flips tasks with an empty set to QUEUED. The
engine holds only this narrow interface, which breaks the reference
cycle between the two packages.

A BLOCKED task whose blocker becomes FAILED stays BLOCKED; failure does
not cascade through the dependency graph.

# See Also

  - pkg/engine for the consumer of QUEUED tasks
  - pkg/asset for promise creation and fulfilment
*/
package orchestrator
