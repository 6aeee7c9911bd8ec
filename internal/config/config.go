// Package config loads and validates the pool's YAML configuration file
// (spec §6.5), the same validate-after-parse shape this codebase's CLI
// config loader uses for its own YAML config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/honygo/ocrpool/pkg/poolerr"
)

// ScalingSection is the `scaling.*` block of the config file.
type ScalingSection struct {
	QueueUpThreshold   int     `yaml:"queue_up_threshold"`
	LatencyUpThreshold int     `yaml:"latency_up_threshold_ms"`
	CPUUpThreshold     float64 `yaml:"cpu_up_threshold"`
	CPUDownThreshold   float64 `yaml:"cpu_down_threshold"`
	IdleDownThreshold  float64 `yaml:"idle_down_threshold"`
	CooldownSeconds    int     `yaml:"cooldown_sec"`
	Step               int     `yaml:"step"`
}

// PreprocessSection is the `preprocess.*` block of the config file.
type PreprocessSection struct {
	ResizeMaxWidth  int  `yaml:"resize_max_w"`
	ResizeMaxHeight int  `yaml:"resize_max_h"`
	Denoise         bool `yaml:"denoise"`
	Contrast        bool `yaml:"contrast"`
	Binarize        bool `yaml:"binarize"`
}

// ModelSection is the `model.*` block of the config file.
type ModelSection struct {
	Languages       []string `yaml:"languages"`
	GPUEnabled      bool     `yaml:"gpu_enabled"`
	StorageDirectory string  `yaml:"storage_directory"`
}

// Config is the full, parsed configuration file (spec §6.5).
type Config struct {
	MinInstances      int    `yaml:"min_instances"`
	MaxInstances      int    `yaml:"max_instances"`
	MaxQueueSize      int    `yaml:"max_queue_size"`
	MaxWorkers        int    `yaml:"max_workers"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`

	HistoryPath string `yaml:"history_path"`
	LogDir      string `yaml:"log_dir"`
	MetricsPort int    `yaml:"metrics_port"`

	Scaling    ScalingSection    `yaml:"scaling"`
	Preprocess PreprocessSection `yaml:"preprocess"`
	Model      ModelSection      `yaml:"model"`
}

// defaults mirrors internal/pool.DefaultConfig, internal/pipeline.DefaultConfig
// and internal/scaling's implicit zero-value semantics, so an empty or
// partial file still produces a runnable configuration.
func defaults() Config {
	return Config{
		MinInstances:      1,
		MaxInstances:      4,
		MaxQueueSize:       1000,
		MaxWorkers:        4,
		RequestTimeoutSec: 30,
		HistoryPath:       "data/ocr/regions.json",
		LogDir:            "data/logs/Performance",
		MetricsPort:       9090,
		Scaling: ScalingSection{
			QueueUpThreshold:   20,
			LatencyUpThreshold: 2000,
			CPUUpThreshold:     80,
			CPUDownThreshold:   20,
			IdleDownThreshold:  0.5,
			CooldownSeconds:    30,
			Step:               1,
		},
		Preprocess: PreprocessSection{
			ResizeMaxWidth:  1920,
			ResizeMaxHeight: 1080,
			Denoise:         true,
		},
		Model: ModelSection{
			Languages:        []string{"en"},
			StorageDirectory: "data/models",
		},
	}
}

// Load reads and parses path, overlaying its values onto the package
// defaults, then validates the result. A missing file is an error — unlike
// internal/history.Store, startup configuration has no sensible "absent is
// fine" fallback.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file: %v", poolerr.ErrConfig, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config YAML: %v", poolerr.ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field invariants the CLI must reject before
// starting the pool (spec §7 ConfigError: "invalid configuration at
// startup, process exits 1").
func (c *Config) Validate() error {
	switch {
	case c.MinInstances < 1:
		return fmt.Errorf("%w: min_instances must be >= 1, got %d", poolerr.ErrConfig, c.MinInstances)
	case c.MaxInstances < c.MinInstances:
		return fmt.Errorf("%w: max_instances (%d) must be >= min_instances (%d)", poolerr.ErrConfig, c.MaxInstances, c.MinInstances)
	case c.MaxQueueSize < 1:
		return fmt.Errorf("%w: max_queue_size must be >= 1, got %d", poolerr.ErrConfig, c.MaxQueueSize)
	case c.MaxWorkers < 1:
		return fmt.Errorf("%w: max_workers must be >= 1, got %d", poolerr.ErrConfig, c.MaxWorkers)
	case c.RequestTimeoutSec < 1:
		return fmt.Errorf("%w: request_timeout_sec must be >= 1, got %d", poolerr.ErrConfig, c.RequestTimeoutSec)
	case c.Scaling.CooldownSeconds < 0:
		return fmt.Errorf("%w: scaling.cooldown_sec must be >= 0, got %d", poolerr.ErrConfig, c.Scaling.CooldownSeconds)
	case c.Scaling.Step < 1:
		return fmt.Errorf("%w: scaling.step must be >= 1, got %d", poolerr.ErrConfig, c.Scaling.Step)
	case len(c.Model.Languages) == 0:
		return fmt.Errorf("%w: model.languages must list at least one language", poolerr.ErrConfig)
	}
	return nil
}
