/*
Package log provides structured logging using zerolog.

A single global logger is initialised via Init and consumed through
context helpers. Components create child loggers with WithComponent;
record-scoped helpers (WithModuleID, WithTaskID, WithAssetID) attach
the relevant identifier to every line.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("engine")
	logger.Info().Str("module_id", "resize_image").Msg("starting task")

Output is JSON when JSONOutput is set, otherwise a human-readable
console format for development.
*/
package log
