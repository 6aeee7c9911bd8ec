// Package worker's Pool manages a fixed number of worker goroutines
// pulling from a shared priority queue (spec §4.4).
//
// Lifecycle:
//  1. NewPool() - construct, wiring in the queue and instance source
//  2. Start() - launch cfg.WorkerCount goroutines
//  3. Stop() - close stopCh, wait for every worker to return its current
//     task before exiting
//
// Concurrency control:
//   - stopCh: closed once, signals every worker to stop pulling new tasks
//   - sync.WaitGroup: tracks all workers for graceful shutdown
//   - sync.Mutex: protects started/stopped state
package worker

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrPoolClosed     = errors.New("worker pool is closed")
	ErrPoolNotStarted = errors.New("worker pool not started")
)

// Pool owns the fixed set of worker goroutines draining the shared queue.
type Pool struct {
	cfg       Config
	queue     Queue
	instances InstanceSource
	cancels   CancelRegistry
	log       *zap.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPool builds a Pool. queue, instances, and cancels are the
// collaborators the worker loop needs; none may be nil.
func NewPool(cfg Config, queue Queue, instances InstanceSource, cancels CancelRegistry, log *zap.Logger) *Pool {
	return &Pool{
		cfg:       cfg,
		queue:     queue,
		instances: instances,
		cancels:   cancels,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

// Start launches cfg.WorkerCount worker goroutines. It is an error to call
// Start twice.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("worker pool already started")
	}

	for i := 0; i < p.cfg.WorkerCount; i++ {
		w := &worker{
			id:        i,
			queue:     p.queue,
			instances: p.instances,
			cancels:   p.cancels,
			cfg:       p.cfg,
			log:       p.log,
		}
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			w.run(p.stopCh)
		}(w)
	}

	p.started = true
	return nil
}

// Stop signals every worker to stop pulling new tasks and blocks until
// in-flight tasks return. Idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
}

// WorkerCount returns the configured (not necessarily live) worker count.
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.WorkerCount
}

// IsStarted reports whether Start has been called.
func (p *Pool) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}
