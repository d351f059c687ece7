package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/diagomike/RecompBackend/pkg/events"
	"github.com/diagomike/RecompBackend/pkg/log"
	"github.com/diagomike/RecompBackend/pkg/metrics"
	"github.com/diagomike/RecompBackend/pkg/storage"
	"github.com/diagomike/RecompBackend/pkg/types"
	"github.com/rs/zerolog"
)

// Registry coordinates the discovery, installation, and verification of
// modules. It is the only writer of module records.
type Registry struct {
	modulesRoot string
	store       storage.Store
	broker      *events.Broker
	scanner     *Scanner
	env         EnvProvisioner
	runner      ProcessRunner
	logger      zerolog.Logger
	stopCh      chan struct{}
}

// NewRegistry creates a registry orchestrator over the given modules root
func NewRegistry(store storage.Store, broker *events.Broker, modulesRoot, python string) *Registry {
	return &Registry{
		modulesRoot: modulesRoot,
		store:       store,
		broker:      broker,
		scanner:     NewScanner(),
		env:         NewEnvManager(python),
		runner:      NewRunner(),
		logger:      log.WithComponent("registry"),
		stopCh:      make(chan struct{}),
	}
}

// DiscoverAndRegister scans the modules root and drives every candidate
// directory through the module lifecycle. Re-running with an unchanged
// tree yields unchanged records.
func (r *Registry) DiscoverAndRegister() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ScanDuration)

	r.logger.Info().Str("root", r.modulesRoot).Msg("scanning modules")

	found := r.scanner.ScanDirectory(r.modulesRoot)
	for dirName, fullPath := range found {
		r.processModule(dirName, fullPath)
	}
	return nil
}

// Start begins a background rescan loop. A non-positive interval
// disables the loop.
func (r *Registry) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.DiscoverAndRegister(); err != nil {
					r.logger.Error().Err(err).Msg("rescan failed")
				}
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop stops the rescan loop
func (r *Registry) Stop() {
	close(r.stopCh)
}

func (r *Registry) processModule(dirName, fullPath string) {
	cfg := r.scanner.ValidateModule(fullPath)
	if cfg == nil {
		r.logger.Debug().Str("dir", dirName).Msg("skipping: invalid structure")
		return
	}

	moduleName := cfg.Name
	if moduleName == "" {
		moduleName = dirName
	}
	currentHash := r.scanner.CalculateHash(fullPath)
	logger := log.WithModuleID(moduleName)

	existing, err := r.store.GetModule(moduleName)
	needsInstall := false

	switch {
	case storage.IsNotFound(err):
		logger.Info().Msg("new module detected")
		module := &types.Module{
			ID:               moduleName,
			Status:           types.ModuleStatusDetected,
			Path:             fullPath,
			VersionHash:      currentHash,
			Config:           cfg,
			Capabilities:     &types.Capabilities{Inputs: cfg.Inputs, Outputs: cfg.Outputs},
			InstallationLogs: []string{},
		}
		if err := r.store.CreateModule(module); err != nil {
			logger.Error().Err(err).Msg("failed to create module record")
			return
		}
		r.publish(events.EventModuleDetected, moduleName, "module detected")
		needsInstall = true

	case err != nil:
		logger.Error().Err(err).Msg("failed to load module record")
		return

	case existing.VersionHash != currentHash:
		logger.Info().Str("old_hash", existing.VersionHash).Str("new_hash", currentHash).Msg("module changed")
		existing.Status = types.ModuleStatusDetected
		existing.Path = fullPath
		existing.VersionHash = currentHash
		existing.Config = cfg
		existing.Capabilities = &types.Capabilities{Inputs: cfg.Inputs, Outputs: cfg.Outputs}
		existing.InstallationLogs = []string{} // New install, new logs
		if err := r.store.UpdateModule(existing); err != nil {
			logger.Error().Err(err).Msg("failed to update module record")
			return
		}
		needsInstall = true

	case existing.Status == types.ModuleStatusError ||
		existing.Status == types.ModuleStatusDetected ||
		existing.Status == types.ModuleStatusInstalling:
		// Stuck or failed previously, retry
		logger.Info().Str("status", string(existing.Status)).Msg("retrying module install")
		needsInstall = true
	}

	if needsInstall {
		r.installModule(moduleName, fullPath)
	}
}

func (r *Registry) installModule(moduleName, fullPath string) {
	logger := log.WithModuleID(moduleName)
	logger.Info().Msg("installing module")

	if err := r.setStatus(moduleName, types.ModuleStatusInstalling); err != nil {
		logger.Error().Err(err).Msg("failed to persist INSTALLING")
		return
	}

	ok, msg := r.env.CreateVenv(fullPath)
	r.appendLog(moduleName, "[Setup] "+msg)
	if !ok {
		r.fail(moduleName, "")
		return
	}

	installed := r.env.InstallRequirements(fullPath, func(line string) {
		r.appendLog(moduleName, "[Pip] "+line)
	})
	if !installed {
		r.fail(moduleName, "[Setup] Pip installation failed.")
		return
	}

	if err := r.setStatus(moduleName, types.ModuleStatusTesting); err != nil {
		logger.Error().Err(err).Msg("failed to persist TESTING")
		return
	}
	r.testModule(moduleName, fullPath)
}

// testModule runs the module self-test: the content of test_data.json is
// embedded directly into the manifest's inputs field. Existing modules
// depend on this envelope, so it is kept even though run-mode inputs are
// always paths.
func (r *Registry) testModule(moduleName, fullPath string) {
	logger := log.WithModuleID(moduleName)
	logger.Info().Msg("testing module")

	module, err := r.store.GetModule(moduleName)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load module record")
		return
	}

	testFile := filepath.Join(fullPath, "test_data.json")
	testData, err := os.ReadFile(testFile)
	if err != nil {
		r.fail(moduleName, "[Test] Missing test_data.json")
		return
	}

	var testInputs any
	if err := json.Unmarshal(testData, &testInputs); err != nil {
		r.fail(moduleName, fmt.Sprintf("[Test] Invalid test_data.json: %v", err))
		return
	}

	manifest := &types.Manifest{
		Mode:   types.ManifestModeTest,
		TaskID: types.TestRunTaskID,
		Inputs: testInputs,
	}
	manifestPath, err := WriteManifest(manifest, types.TestRunTaskID)
	if err != nil {
		r.fail(moduleName, fmt.Sprintf("[Test] Cannot write manifest: %v", err))
		return
	}
	defer os.Remove(manifestPath)

	interpreter := r.env.InterpreterPath(fullPath)
	script := filepath.Join(fullPath, module.Config.EntryPoint)

	result := r.runner.Run(context.Background(), interpreter, script, manifestPath, DefaultTimeout)

	for _, line := range result.Logs {
		r.appendLog(moduleName, "[Test Output] "+line)
	}

	if !result.Success {
		r.fail(moduleName, fmt.Sprintf("[Test] Execution failed: %s", result.Error))
		return
	}
	if status, _ := result.Result["status"].(string); status != "success" {
		r.fail(moduleName, fmt.Sprintf("[Test] Validation failed. Result: %v", result.Result))
		return
	}

	module, err = r.store.GetModule(moduleName)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load module record")
		return
	}
	module.Status = types.ModuleStatusAvailable
	module.InterpreterPath = interpreter
	module.EnvPath = r.env.VenvPath(fullPath)
	if err := r.store.UpdateModule(module); err != nil {
		logger.Error().Err(err).Msg("failed to persist AVAILABLE")
		return
	}

	logger.Info().Msg("module is now AVAILABLE")
	r.publish(events.EventModuleAvailable, moduleName, "module available")
}

func (r *Registry) setStatus(moduleName string, status types.ModuleStatus) error {
	module, err := r.store.GetModule(moduleName)
	if err != nil {
		return err
	}
	module.Status = status
	return r.store.UpdateModule(module)
}

func (r *Registry) fail(moduleName, logLine string) {
	if logLine != "" {
		r.appendLog(moduleName, logLine)
	}
	if err := r.setStatus(moduleName, types.ModuleStatusError); err != nil {
		logger := log.WithModuleID(moduleName)
		logger.Error().Err(err).Msg("failed to persist ERROR")
		return
	}
	r.publish(events.EventModuleError, moduleName, logLine)
}

func (r *Registry) appendLog(moduleName, line string) {
	if err := r.store.AppendModuleLog(moduleName, line); err != nil {
		logger := log.WithModuleID(moduleName)
		logger.Error().Err(err).Msg("failed to append installation log")
	}
}

func (r *Registry) publish(eventType events.EventType, moduleName, msg string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		Type:     eventType,
		Message:  msg,
		Metadata: map[string]string{"module_id": moduleName},
	})
}

// WriteManifest serialises a manifest to a fresh temporary file and
// returns its path. The caller removes the file after the run.
func WriteManifest(manifest *types.Manifest, taskID string) (string, error) {
	data, err := json.Marshal(manifest)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "manifest_"+taskID+"_*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
