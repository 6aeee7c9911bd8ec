package pool

import "time"

// Config tunes the Pool Manager: initial sizing, worker concurrency, and
// per-task limits (spec §4.5/§6.5).
type Config struct {
	MinInstances int
	MaxInstances int
	WorkerCount  int
	MaxQueueSize int
	MaxRetries   int

	// HealthCheckInterval governs how often instance resource usage
	// (memory/CPU) is resampled for the scaling controller.
	HealthCheckInterval time.Duration

	// ErrorGracePeriod is how long an instance may remain in ERROR before
	// the health-check loop reaps it (stop + release) and backfills a
	// replacement toward MinInstances (spec §4.5 "Health check").
	ErrorGracePeriod time.Duration
}

// DefaultConfig mirrors the defaults this codebase ships for every other
// tunable, overridable from the YAML config file.
func DefaultConfig() Config {
	return Config{
		MinInstances:        1,
		MaxInstances:        4,
		WorkerCount:         4,
		MaxQueueSize:        1000,
		MaxRetries:          2,
		HealthCheckInterval: 5 * time.Second,
		ErrorGracePeriod:    30 * time.Second,
	}
}
