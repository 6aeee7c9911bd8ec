// Package worker implements the Queue & Worker Threads component of spec
// §4.4: a fixed pool of goroutines pulling tasks from the priority
// admission queue, acquiring an instance through the dispatcher, and
// running the pre/post pipeline against it.
package worker

import (
	"context"
	"time"

	"github.com/honygo/ocrpool/pkg/types"
)

// Instance is the subset of *instance.Instance a worker needs: enough to
// run a task. Kept as a local interface so this package never imports
// internal/instance directly.
type Instance interface {
	ID() string
	Recognize(ctx context.Context, imageBytes []byte, keywords []string, opts types.RecognizeOptions) (*types.EnrichedResult, error)
}

// InstanceSource hands out an instance that is atomically marked RUNNING
// as part of selection, mirroring spec §4.3's requirement that select and
// mark-running happen under one lock.
type InstanceSource interface {
	Acquire() (Instance, bool)
}

// CancelRegistry lets the pool manager cancel an in-flight task's context
// from Cancel(), without the worker package knowing anything about how
// cancellation is tracked pool-wide.
type CancelRegistry interface {
	Register(id types.TaskID, cancel context.CancelFunc)
	Unregister(id types.TaskID)
}

// Queue is the subset of *queue.Queue a worker needs.
type Queue interface {
	Pop() (*types.Task, bool)
	NotEmpty() <-chan struct{}
	Push(task *types.Task) error
}

// Config tunes pool behavior.
type Config struct {
	WorkerCount int

	// NoReadyInstanceInitialBackoff/MaxBackoff bound the jittered backoff a
	// worker applies while no instance is READY/IDLE (spec §4.4).
	NoReadyInstanceInitialBackoff time.Duration
	NoReadyInstanceMaxBackoff     time.Duration
}

// DefaultConfig mirrors the defaults this codebase ships for every other
// tunable pool: sane, documented, overridable from YAML.
func DefaultConfig(workerCount int) Config {
	return Config{
		WorkerCount:                   workerCount,
		NoReadyInstanceInitialBackoff: 10 * time.Millisecond,
		NoReadyInstanceMaxBackoff:     100 * time.Millisecond,
	}
}
