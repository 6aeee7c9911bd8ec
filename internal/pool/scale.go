package pool

import (
	"context"
	"fmt"

	"github.com/honygo/ocrpool/internal/dispatch"
	"github.com/honygo/ocrpool/internal/instance"
	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
)

// Grow starts n additional instances, never exceeding cfg.MaxInstances.
// It is called by the Scaling Controller's GROW decisions (spec §4.6).
func (m *Manager) Grow(ctx context.Context, n int) (int, error) {
	m.mu.Lock()
	room := m.cfg.MaxInstances - len(m.instances)
	m.mu.Unlock()
	if room <= 0 {
		return 0, nil
	}
	if n > room {
		n = room
	}

	started := 0
	var firstErr error
	for i := 0; i < n; i++ {
		if _, err := m.addInstance(ctx); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		started++
	}
	return started, firstErr
}

// Shrink stops up to n IDLE instances, never dropping below
// cfg.MinInstances. Instances are chosen highest-load-first among IDLE
// candidates, draining the least valuable instances while keeping the
// ones closest to being dispatched to again.
func (m *Manager) Shrink(n int) (int, error) {
	m.mu.Lock()
	if len(m.instances)-n < m.cfg.MinInstances {
		n = len(m.instances) - m.cfg.MinInstances
	}
	if n <= 0 {
		m.mu.Unlock()
		return 0, nil
	}

	candidates := make([]*instance.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		if inst.Status() == types.InstanceIdle {
			candidates = append(candidates, inst)
		}
	}
	// SelectMany ranks eligible instances lowest-load-first; the tail
	// holds the highest-load IDLE instances, which are the ones to drain.
	ranked := dispatch.SelectMany(candidates)
	toStop := make([]*instance.Instance, 0, n)
	for i := len(ranked) - 1; i >= 0 && len(toStop) < n; i-- {
		toStop = append(toStop, ranked[i])
	}
	for _, inst := range toStop {
		delete(m.instances, inst.ID())
	}
	m.mu.Unlock()

	stopped := 0
	var firstErr error
	for _, inst := range toStop {
		if err := inst.Stop(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("stop instance %s: %w", inst.ID(), err)
			}
			continue
		}
		stopped++
	}
	return stopped, firstErr
}

// RestartInstance re-runs Start on a single instance in place, used by the
// HTTP gateway's POST /instances/{id}/restart. The health-check loop does
// not call it: it reaps long-ERROR instances and backfills instead.
func (m *Manager) RestartInstance(ctx context.Context, id string) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: instance %s", poolerr.ErrNotFound, id)
	}
	return inst.Restart(ctx)
}
