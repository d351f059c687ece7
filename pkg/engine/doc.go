/*
Package engine executes QUEUED tasks as module subprocesses.

A fixed pool of workers polls the task queue. Claiming is a single
atomic storage operation that flips the oldest QUEUED task to RUNNING,
so concurrent workers never pick up the same task. Each claimed task
goes through one dispatch cycle:

 1. the module must be AVAILABLE, otherwise the task and every output
    promise fail immediately
 2. every input asset is resolved to a filesystem path; VALUE assets
    are materialised into a task-scoped temp directory
 3. a run-mode manifest is written and the module is invoked as
    `<interpreter> <entry script> --manifest <path>` under the task
    timeout
 4. on success the declared output keys are read from the result and
    each promise is fulfilled (ASSET as a produced file path, VALUE
    inline); a key the module omitted fails only that promise
 5. on failure the task and all of its promises fail, the promise
    reason naming the parent task

The task reaches COMPLETED or FAILED before any asset-available event
is delivered, so a dependent task never observes a RUNNING producer.
Failure does not cascade to BLOCKED dependents; their promises simply
stay FAILED and the dependents stay BLOCKED.

# See Also

  - pkg/orchestrator for queueing and dependency promotion
  - pkg/registry for the shared subprocess runner
*/
package engine
