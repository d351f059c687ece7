package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/diagomike/RecompBackend/pkg/api"
	"github.com/diagomike/RecompBackend/pkg/asset"
	"github.com/diagomike/RecompBackend/pkg/config"
	"github.com/diagomike/RecompBackend/pkg/engine"
	"github.com/diagomike/RecompBackend/pkg/events"
	"github.com/diagomike/RecompBackend/pkg/log"
	"github.com/diagomike/RecompBackend/pkg/metrics"
	"github.com/diagomike/RecompBackend/pkg/orchestrator"
	"github.com/diagomike/RecompBackend/pkg/registry"
	"github.com/diagomike/RecompBackend/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "recomp",
	Short: "Recomp - atomic task runner for self-describing modules",
	Long: `Recomp discovers self-describing computation modules on disk,
provisions an isolated environment per module, and executes tasks
against their declared input/output contracts. Task outputs are
promised up front as assets, so dependent tasks can be submitted
before their producers finish.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Recomp version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "recomp.yaml", "Path to configuration file")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(scanCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the orchestrator server",
	Long: `Start the full orchestrator: module discovery, the task execution
engine, and the HTTP API. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
		})
		logger := log.WithComponent("main")

		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open store: %v", err)
		}
		defer store.Close()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		assets, err := asset.NewManager(store, cfg.StorageRoot)
		if err != nil {
			return fmt.Errorf("failed to initialize asset storage: %v", err)
		}

		reg := registry.NewRegistry(store, broker, cfg.ModulesRoot, cfg.Python)
		if err := reg.DiscoverAndRegister(); err != nil {
			logger.Error().Err(err).Msg("initial module scan failed")
		}
		reg.Start(cfg.Engine.RescanInterval)
		defer reg.Stop()

		orch := orchestrator.NewTaskOrchestrator(store, assets, broker)

		eng := engine.NewEngine(store, assets, orch, broker, engine.Options{
			Workers:      cfg.Engine.Workers,
			PollInterval: cfg.Engine.PollInterval,
			TaskTimeout:  cfg.Engine.TaskTimeout,
		})
		eng.Start()
		defer eng.Stop()

		collector := metrics.NewCollector(store)
		collector.Start()
		defer collector.Stop()

		server := api.NewServer(api.Options{
			Addr:       cfg.API.Addr,
			EnableCORS: cfg.API.EnableCORS,
		}, store, assets, orch, reg, broker)

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil {
				errCh <- fmt.Errorf("API server error: %v", err)
			}
		}()

		logger.Info().Str("addr", cfg.API.Addr).Str("modules_root", cfg.ModulesRoot).Msg("recomp server running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			logger.Error().Err(err).Msg("server failed")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down cleanly: %v", err)
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one module discovery cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
		})

		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open store: %v", err)
		}
		defer store.Close()

		reg := registry.NewRegistry(store, nil, cfg.ModulesRoot, cfg.Python)
		if err := reg.DiscoverAndRegister(); err != nil {
			return err
		}

		modules, err := store.ListModules()
		if err != nil {
			return err
		}
		for _, m := range modules {
			fmt.Printf("%-30s %-12s %s\n", m.ID, m.Status, m.Path)
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Absolutize(); err != nil {
		return nil, err
	}
	return cfg, nil
}
