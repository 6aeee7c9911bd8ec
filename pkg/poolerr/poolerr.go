// Package poolerr names the error taxonomy used across the pool: sentinel
// values callers test with errors.Is, wrapped with context via fmt.Errorf
// at the point they're raised.
package poolerr

import "errors"

var (
	// ErrBadImage: input cannot be decoded or is empty. Maps to HTTP 400;
	// the task fails immediately with no retry.
	ErrBadImage = errors.New("image could not be decoded")

	// ErrQueueFull: admission denied, the bounded queue is at capacity.
	// Maps to HTTP 409; never retried inside the core.
	ErrQueueFull = errors.New("task queue is full")

	// ErrNoReadyInstance: the dispatcher found no eligible instance. Never
	// surfaced to a caller; the worker backs off and retries internally.
	ErrNoReadyInstance = errors.New("no ready instance available")

	// ErrRecognition: a transient Recognizer failure. Retried up to
	// MaxRetries.
	ErrRecognition = errors.New("recognition failed")

	// ErrFatalInstance: the Recognizer handle became unusable. The owning
	// instance moves to ERROR; the task is retried on another instance if
	// retries remain.
	ErrFatalInstance = errors.New("instance entered a fatal error state")

	// ErrCancelled: cancellation was observed before recognition completed.
	ErrCancelled = errors.New("task cancelled")

	// ErrTimeout: ProcessSync's caller-side deadline elapsed. The
	// underlying task is not cancelled automatically.
	ErrTimeout = errors.New("process_sync deadline exceeded")

	// ErrConfig: invalid configuration at startup. The process exits 1.
	ErrConfig = errors.New("invalid configuration")

	// ErrNotFound: no task or instance exists with the given identifier.
	ErrNotFound = errors.New("not found")

	// ErrPoolNotStarted / ErrPoolClosed mirror the worker pool's own
	// lifecycle guards.
	ErrPoolNotStarted = errors.New("pool not started")
	ErrPoolClosed     = errors.New("pool is closed")
)
