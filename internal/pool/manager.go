// Package pool implements the Pool Manager of spec §4.5: the coordinator
// that owns the instance table, the admission queue, and the worker pool,
// and exposes the Submit/ProcessSync/Cancel/GetResult/GetStatus facade the
// HTTP gateway and scaling controller call into.
//
// Concurrency model (generalized from this codebase's crash-recovery
// coordinator): a single mutex guards the instance table so that dispatch
// selection and marking an instance RUNNING happen atomically, per spec
// §4.3. The admission queue and worker pool manage their own locking
// internally and are safe to call without holding that mutex.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/honygo/ocrpool/internal/dispatch"
	"github.com/honygo/ocrpool/internal/instance"
	"github.com/honygo/ocrpool/internal/queue"
	"github.com/honygo/ocrpool/internal/worker"
	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
)

// Manager coordinates the whole pool: instance lifecycle, admission
// queue, and worker dispatch.
type Manager struct {
	cfg     Config
	log     *zap.Logger
	factory instance.Factory
	ports   instance.PortAllocator
	instCfg instance.Config

	queue   *queue.Queue
	workers *worker.Pool

	mu        sync.Mutex
	instances map[string]*instance.Instance
	seq       int

	tasksMu sync.Mutex
	tasks   map[types.TaskID]*types.Task

	cancelsMu sync.Mutex
	cancels   map[types.TaskID]context.CancelFunc

	startTime time.Time
	started   bool
	stopped   bool

	healthStop chan struct{}
	healthWG   sync.WaitGroup
}

// NewManager builds a Manager. factory/ports/instCfg are used to start new
// instances on demand (initial sizing, Grow, and instance restarts).
func NewManager(cfg Config, factory instance.Factory, ports instance.PortAllocator, instCfg instance.Config, log *zap.Logger) *Manager {
	m := &Manager{
		cfg:       cfg,
		log:       log,
		factory:   factory,
		ports:     ports,
		instCfg:   instCfg,
		queue:     queue.New(cfg.MaxQueueSize),
		instances: make(map[string]*instance.Instance),
		tasks:     make(map[types.TaskID]*types.Task),
		cancels:   make(map[types.TaskID]context.CancelFunc),
	}
	m.workers = worker.NewPool(worker.DefaultConfig(cfg.WorkerCount), m.queue, m, m, log)
	return m
}

// StartService brings up cfg.MinInstances instances and starts the worker
// pool. It returns the first fatal instance-start error encountered, but
// continues attempting the remaining instances so a single bad model path
// does not prevent the pool from reaching a partially-usable state.
func (m *Manager) StartService(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("%w: already started", poolerr.ErrConfig)
	}
	m.started = true
	m.startTime = time.Now()
	m.mu.Unlock()

	var firstErr error
	for i := 0; i < m.cfg.MinInstances; i++ {
		if _, err := m.addInstance(ctx); err != nil {
			m.log.Error("failed to start instance", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := m.workers.Start(); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}

	m.healthStop = make(chan struct{})
	m.healthWG.Add(1)
	go m.healthLoop(m.healthStop, &m.healthWG)

	return firstErr
}

// Shutdown stops the worker pool (waiting for in-flight tasks) then stops
// every instance.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	healthStop := m.healthStop
	instances := make([]*instance.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		instances = append(instances, inst)
	}
	m.mu.Unlock()

	if healthStop != nil {
		close(healthStop)
		m.healthWG.Wait()
	}

	m.workers.Stop()

	var firstErr error
	for _, inst := range instances {
		if err := inst.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// addInstance starts one new instance and adds it to the table under
// lock. Called by StartService, Grow, and AddInstance.
func (m *Manager) addInstance(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.seq++
	id := fmt.Sprintf("instance-%d-%s", m.seq, uuid.NewString()[:8])
	cfg := m.instCfg
	inst := instance.New(id, m.factory, m.ports, cfg, m.log)
	m.instances[id] = inst
	m.mu.Unlock()

	if err := inst.Start(ctx); err != nil {
		return id, fmt.Errorf("start instance %s: %w", id, err)
	}
	return id, nil
}
