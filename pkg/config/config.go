package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a recomp.yaml configuration file.
// All values are optional; Defaults fills in anything left unset.
type Config struct {
	DataDir     string       `yaml:"data_dir"`
	ModulesRoot string       `yaml:"modules_root"`
	StorageRoot string       `yaml:"storage_root"`
	Python      string       `yaml:"python"`
	API         APIConfig    `yaml:"api"`
	Engine      EngineConfig `yaml:"engine"`
	Log         LogConfig    `yaml:"log"`
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	Addr       string `yaml:"addr"`
	EnableCORS bool   `yaml:"enable_cors"`
}

// EngineConfig holds execution engine settings
type EngineConfig struct {
	Workers        int           `yaml:"workers"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	TaskTimeout    time.Duration `yaml:"task_timeout"`
	RescanInterval time.Duration `yaml:"rescan_interval"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Defaults returns a configuration with all defaults applied
func Defaults() *Config {
	return &Config{
		DataDir:     "data",
		ModulesRoot: "modules",
		StorageRoot: "storage",
		Python:      "python3",
		API: APIConfig{
			Addr:       ":8000",
			EnableCORS: true,
		},
		Engine: EngineConfig{
			Workers:      1,
			PollInterval: 2 * time.Second,
			TaskTimeout:  600 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file and merges it over the defaults.
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	if cfg.Engine.Workers < 1 {
		cfg.Engine.Workers = 1
	}
	return cfg, nil
}

// Absolutize converts the configured directories to absolute paths
func (c *Config) Absolutize() error {
	for _, p := range []*string{&c.DataDir, &c.ModulesRoot, &c.StorageRoot} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("cannot resolve path %q: %w", *p, err)
		}
		*p = abs
	}
	return nil
}
