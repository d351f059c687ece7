/*
Package asset manages the lifecycle of assets (files and inline values).

An asset moves through PENDING → AVAILABLE | FAILED; both outcomes are
terminal and terminal records are never mutated. A PENDING asset is a
promise owned by exactly one producing task.

# Storage Layout

The manager owns a storage root with two subtrees:

	storage/
	    uploads/YYYY-MM-DD/<asset_id>_<original_name>   ingested files
	    generated/<task_id>/<output_name>               task outputs

Each generated subtree belongs to exactly one task; no two tasks share
an output directory.

# Operations

  - Ingest: copy an external file into today's uploads subtree, record
    it AVAILABLE
  - CreatePending: record a FILE promise back-referenced to its task
  - CreateValue: record an AVAILABLE inline value
  - FulfillFile / FulfillValue: resolve a promise to AVAILABLE
  - Fail: resolve a promise to FAILED with a reason
  - ResolveToPath: produce a concrete path for module consumption;
    VALUE assets are spilled to a temporary file

# See Also

  - pkg/orchestrator for promise creation at task submission
  - pkg/engine for fulfilment at task finalisation
*/
package asset
