package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_AppliesDefaultsForOmittedKeys(t *testing.T) {
	path := writeConfig(t, "min_instances: 2\nmax_instances: 5\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MinInstances)
	assert.Equal(t, 5, cfg.MaxInstances)
	assert.Equal(t, 1000, cfg.MaxQueueSize)
	assert.Equal(t, []string{"en"}, cfg.Model.Languages)
	assert.Equal(t, 30, cfg.Scaling.CooldownSeconds)
}

func TestLoad_FullFileOverridesEveryKey(t *testing.T) {
	path := writeConfig(t, `
min_instances: 1
max_instances: 8
max_queue_size: 500
max_workers: 6
request_timeout_sec: 15
history_path: /tmp/regions.json
log_dir: /tmp/logs
metrics_port: 9100
scaling:
  queue_up_threshold: 10
  latency_up_threshold_ms: 1500
  cpu_up_threshold: 75
  cpu_down_threshold: 15
  idle_down_threshold: 0.6
  cooldown_sec: 45
  step: 2
preprocess:
  resize_max_w: 1280
  resize_max_h: 720
  denoise: false
  contrast: true
  binarize: true
model:
  languages: ["en", "fr"]
  gpu_enabled: true
  storage_directory: /models
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxInstances)
	assert.Equal(t, 500, cfg.MaxQueueSize)
	assert.Equal(t, 2, cfg.Scaling.Step)
	assert.True(t, cfg.Preprocess.Contrast)
	assert.True(t, cfg.Model.GPUEnabled)
	assert.Equal(t, []string{"en", "fr"}, cfg.Model.Languages)
}

func TestValidate_RejectsInvalidBounds(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"min below one", "min_instances: 0\n"},
		{"max below min", "min_instances: 4\nmax_instances: 2\n"},
		{"zero queue size", "max_queue_size: 0\n"},
		{"zero workers", "max_workers: 0\n"},
		{"negative cooldown", "scaling:\n  cooldown_sec: -1\n"},
		{"zero step", "scaling:\n  step: 0\n"},
		{"no languages", "model:\n  languages: []\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "min_instances: [this is not an int\n")
	_, err := Load(path)
	assert.Error(t, err)
}
