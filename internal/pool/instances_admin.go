package pool

import (
	"context"
	"fmt"

	"github.com/honygo/ocrpool/internal/instance"
	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
)

// AddInstance starts one new instance beyond the initial MinInstances set,
// rejecting the request once the pool is already at MaxInstances (spec
// §6.1: "POST /instances ... 500 (at-max rejected)").
func (m *Manager) AddInstance(ctx context.Context) (string, error) {
	m.mu.Lock()
	atMax := len(m.instances) >= m.cfg.MaxInstances
	m.mu.Unlock()
	if atMax {
		return "", fmt.Errorf("%w: pool already at max_instances", poolerr.ErrConfig)
	}
	return m.addInstance(ctx)
}

// RemoveInstance stops and forgets one instance entirely (spec §6.1:
// "DELETE /instances/{id}").
func (m *Manager) RemoveInstance(id string) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if ok {
		delete(m.instances, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: instance %s", poolerr.ErrNotFound, id)
	}
	return inst.Stop()
}

// StartInstance (re)starts an existing instance in place, used by spec
// §6.1's "POST /instances/{id}/start".
func (m *Manager) StartInstance(ctx context.Context, id string) error {
	inst, ok := m.instanceByID(id)
	if !ok {
		return fmt.Errorf("%w: instance %s", poolerr.ErrNotFound, id)
	}
	return inst.Start(ctx)
}

// StopInstance stops an instance in place without removing it from the
// table, used by spec §6.1's "POST /instances/{id}/stop".
func (m *Manager) StopInstance(id string) error {
	inst, ok := m.instanceByID(id)
	if !ok {
		return fmt.Errorf("%w: instance %s", poolerr.ErrNotFound, id)
	}
	return inst.Stop()
}

// InstanceByID returns a snapshot of one instance by id, used by spec
// §6.1's GET /instances/{id} and /instances/{id}/logs.
func (m *Manager) InstanceByID(id string) (types.InstanceSnapshotDetail, bool) {
	inst, ok := m.instanceByID(id)
	if !ok {
		return types.InstanceSnapshotDetail{}, false
	}
	return types.InstanceSnapshotDetail{
		InstanceSnapshot: inst.Snapshot(),
		Logs:             inst.Logs(),
		Languages:        m.instCfg.Languages,
		GPUEnabled:       m.instCfg.GPUEnabled,
		ModelStorageDir:  m.instCfg.ModelDir,
	}, true
}

func (m *Manager) instanceByID(id string) (*instance.Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	return inst, ok
}
