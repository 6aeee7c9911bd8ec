package pool

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/honygo/ocrpool/internal/instance"
	"github.com/honygo/ocrpool/pkg/types"
)

// healthLoop is the periodic liveness/backfill coordinator of spec §4.5:
// it resamples every instance's resource usage, reaps instances that have
// sat in ERROR past cfg.ErrorGracePeriod, and backfills the pool back up
// to cfg.MinInstances. It runs as its own goroutine for the lifetime of
// the service, mirroring the worker pool's stopCh/WaitGroup shutdown shape.
func (m *Manager) healthLoop(stop chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	interval := m.cfg.HealthCheckInterval
	if interval <= 0 {
		interval = DefaultConfig().HealthCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.healthTick()
		}
	}
}

// healthTick samples resource usage once, reaps any instance that has
// exceeded its ERROR grace period, and backfills toward MinInstances.
//
// CPU/memory sampling has no real per-instance process to inspect (each
// Instance wraps an in-process Recognizer, not a separate OS process per
// spec §1's framing of the recognition engine as an external collaborator
// reached only through an interface) — see DESIGN.md for why no
// process-metrics library from the pack fits here. Memory is estimated by
// dividing the process's own live heap (runtime.MemStats) across
// currently-held instances; CPU is estimated as 100 while an instance is
// presently RUNNING and 0 otherwise.
func (m *Manager) healthTick() {
	m.mu.Lock()
	snapshot := make([]*instance.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		snapshot = append(snapshot, inst)
	}
	m.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	perInstanceMB := 0.0
	if n := len(snapshot); n > 0 {
		perInstanceMB = float64(memStats.Alloc) / float64(n) / (1024 * 1024)
	}

	grace := m.cfg.ErrorGracePeriod
	if grace <= 0 {
		grace = DefaultConfig().ErrorGracePeriod
	}

	var toReap []string
	for _, inst := range snapshot {
		status := inst.Status()
		cpu := 0.0
		if status == types.InstanceRunning {
			cpu = 100
		}
		inst.UpdateResourceUsage(perInstanceMB, cpu)

		if status == types.InstanceError && inst.TimeInStatus() >= grace {
			toReap = append(toReap, inst.ID())
		}
	}

	for _, id := range toReap {
		m.reapInstance(id)
	}

	m.mu.Lock()
	deficit := m.cfg.MinInstances - len(m.instances)
	m.mu.Unlock()
	if deficit <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i := 0; i < deficit; i++ {
		if _, err := m.addInstance(ctx); err != nil && m.log != nil {
			m.log.Warn("health check backfill failed", zap.Error(err))
		}
	}
}

// reapInstance stops and forgets an instance that has sat in ERROR past
// its grace period, freeing its slot for a backfilled replacement.
func (m *Manager) reapInstance(id string) {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if ok {
		delete(m.instances, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := inst.Stop(); err != nil && m.log != nil {
		m.log.Warn("error stopping reaped instance", zap.String("instance_id", id), zap.Error(err))
	}
}
