package pool

import (
	"context"

	"github.com/honygo/ocrpool/internal/dispatch"
	"github.com/honygo/ocrpool/internal/instance"
	"github.com/honygo/ocrpool/internal/worker"
	"github.com/honygo/ocrpool/pkg/types"
)

// Acquire implements worker.InstanceSource: it selects the lowest-load
// READY/IDLE instance and marks it RUNNING, atomically under m.mu, per
// spec §4.3.
func (m *Manager) Acquire() (worker.Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := make([]*instance.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		candidates = append(candidates, inst)
	}

	selected, ok := dispatch.Select(candidates)
	if !ok {
		return nil, false
	}
	selected.MarkRunning()
	return selected, true
}

// Register implements worker.CancelRegistry.
func (m *Manager) Register(id types.TaskID, cancel context.CancelFunc) {
	m.cancelsMu.Lock()
	m.cancels[id] = cancel
	m.cancelsMu.Unlock()
}

// Unregister implements worker.CancelRegistry.
func (m *Manager) Unregister(id types.TaskID) {
	m.cancelsMu.Lock()
	delete(m.cancels, id)
	m.cancelsMu.Unlock()
}

// instanceSnapshot returns a read-only view of every instance, used by
// GetStatus and the scaling controller.
func (m *Manager) instanceSnapshot() []types.InstanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.InstanceSnapshot, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst.Snapshot())
	}
	return out
}
