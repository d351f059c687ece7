/*
Package registry drives the module lifecycle state machine.

A module is a self-contained program on disk: a directory with a
module.json manifest, a main.py entry script, an optional
requirements.txt, and a mandatory test_data.json self-test payload.
The registry discovers these directories, validates them, provisions an
isolated interpreter environment per module, self-tests, and persists
every transition.

# State Machine

	DETECTED → INSTALLING → TESTING → AVAILABLE
	              ↓            ↓
	            ERROR        ERROR

All transitions are persisted. Drift (a changed content hash) restarts
the machine at DETECTED and clears the installation logs. Discovery is
idempotent: re-running with an unchanged tree yields unchanged records.

# Components

  - Scanner: walks the root, validates structure, computes the content
    hash over module.json, main.py, and requirements.txt
  - EnvManager: creates the per-module venv and installs declared
    dependencies, streaming installer output into installation logs
  - Runner: invokes `<interpreter> <script> --manifest <path>`, merges
    stderr into stdout, and extracts the last JSON object line as the
    result
  - Registry: orchestrates the above and owns all module record writes

The Runner is also used by pkg/engine for run-mode execution; the
EnvProvisioner and ProcessRunner interfaces keep both sides testable
without a real interpreter.

# Self-Test Envelope

The self-test manifest embeds the content of test_data.json directly in
the inputs field rather than a key→path mapping. Deployed modules expect
exactly that envelope, so it is preserved.

# See Also

  - pkg/engine for run-mode execution of AVAILABLE modules
  - pkg/storage for the module_registry collection
*/
package registry
