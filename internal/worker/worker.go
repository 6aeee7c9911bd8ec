package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/honygo/ocrpool/internal/pipeline"
	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
	"go.uber.org/zap"
)

// worker is a single goroutine pulling tasks from the shared queue,
// acquiring an instance, and running the pipeline against it. It holds no
// exported API: lifecycle is entirely owned by Pool.
type worker struct {
	id        int
	queue     Queue
	instances InstanceSource
	cancels   CancelRegistry
	cfg       Config
	log       *zap.Logger
}

// run loops until stopCh closes: pop a task, acquire an instance (backing
// off while none is READY/IDLE), execute, and resolve the task.
func (w *worker) run(stopCh <-chan struct{}) {
	for {
		task, ok := w.queue.Pop()
		if !ok {
			select {
			case <-stopCh:
				return
			case <-w.queue.NotEmpty():
				continue
			}
		}

		select {
		case <-stopCh:
			w.fail(task, poolerr.ErrCancelled)
			return
		default:
		}

		w.handle(task, stopCh)
	}
}

// handle acquires an instance for task and runs it. If no instance is
// READY/IDLE it retries with jittered backoff (spec §4.4) until one
// becomes available, the task's own context is cancelled, or the pool is
// stopping.
func (w *worker) handle(task *types.Task, stopCh <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancels.Register(task.ID, cancel)
	defer w.cancels.Unregister(task.ID)
	defer cancel()

	inst, err := w.acquireInstance(ctx, stopCh)
	if err != nil {
		w.fail(task, err)
		return
	}

	task.Status = types.TaskProcessing
	task.StartedAt = time.Now()

	imgBytes, err := pipeline.ResolvePayload(task.Payload)
	if err != nil {
		w.fail(task, err)
		return
	}

	result, err := inst.Recognize(ctx, imgBytes, task.TargetKeywords, task.Options)
	if err != nil {
		w.onTaskError(task, err)
		return
	}

	task.Resolve(types.TaskCompleted, result, nil)
}

func (w *worker) onTaskError(task *types.Task, err error) {
	if errors.Is(err, context.Canceled) {
		task.Resolve(types.TaskCancelled, nil, poolerr.ErrCancelled)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		task.Resolve(types.TaskFailed, nil, fmt.Errorf("%w: %v", poolerr.ErrTimeout, err))
		return
	}
	// An undecodable image fails the same way on every attempt: no retry.
	if errors.Is(err, poolerr.ErrBadImage) {
		w.fail(task, err)
		return
	}
	// A fatal-instance error moves the originating instance to ERROR but
	// does not condemn the task: re-enqueue so the dispatcher picks a
	// different instance on the next attempt, same as any other
	// recoverable failure (spec §7 FatalInstanceError).
	if task.RetryCount < task.MaxRetries {
		task.RetryCount++
		task.Status = types.TaskPending
		if pushErr := w.queue.Push(task); pushErr == nil {
			return
		}
	}
	w.fail(task, err)
}

func (w *worker) fail(task *types.Task, err error) {
	if task == nil {
		return
	}
	task.Resolve(types.TaskFailed, nil, err)
}

// acquireInstance polls InstanceSource, backing off between attempts, until
// an instance is available, ctx is cancelled, or stopCh closes.
func (w *worker) acquireInstance(ctx context.Context, stopCh <-chan struct{}) (Instance, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.cfg.NoReadyInstanceInitialBackoff
	bo.MaxInterval = w.cfg.NoReadyInstanceMaxBackoff
	bo.MaxElapsedTime = 0 // caller's ctx/stopCh governs how long we retry

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		if inst, ok := w.instances.Acquire(); ok {
			return inst, nil
		}

		wait := bo.NextBackOff()
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-stopCh:
			return nil, poolerr.ErrCancelled
		case <-timer.C:
		}
	}
}
