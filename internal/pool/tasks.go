package pool

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
)

// percentile returns the p-th percentile (0<p<1) of samples, copying and
// sorting rather than mutating the caller's slice.
func percentile(samples []time.Duration, p float64) time.Duration {
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// Submit admits task into the queue, registering it for later GetResult
// lookups. A zero ID is assigned a fresh UUID.
func (m *Manager) Submit(task *types.Task) error {
	m.mu.Lock()
	started := m.started
	stopped := m.stopped
	m.mu.Unlock()
	if !started {
		return poolerr.ErrPoolNotStarted
	}
	if stopped {
		return poolerr.ErrPoolClosed
	}

	if task.ID == "" {
		task.ID = types.TaskID(uuid.NewString())
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = m.cfg.MaxRetries
	}

	m.tasksMu.Lock()
	m.tasks[task.ID] = task
	m.tasksMu.Unlock()

	if err := m.queue.Push(task); err != nil {
		return err
	}
	return nil
}

// ProcessSync submits task and blocks until it reaches a terminal status or
// ctx is cancelled. A timeout only ends the caller's wait: the underlying
// task is not cancelled and keeps running to completion (spec §5/§7
// Timeout) — callers that also want the task stopped must call Cancel
// themselves.
func (m *Manager) ProcessSync(ctx context.Context, task *types.Task) (*types.EnrichedResult, error) {
	if err := m.Submit(task); err != nil {
		return nil, err
	}

	select {
	case <-task.Done():
		return task.Result, task.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", poolerr.ErrTimeout, ctx.Err())
	}
}

// Cancel cancels a task: if it is still queued it is removed and marked
// CANCELLED directly; if it has already been picked up by a worker, the
// task's own context is cancelled so the worker observes it mid-flight.
func (m *Manager) Cancel(id types.TaskID) error {
	m.tasksMu.Lock()
	task, ok := m.tasks[id]
	m.tasksMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: task %s", poolerr.ErrNotFound, id)
	}

	if task.Status.IsTerminal() {
		return nil
	}

	if m.queue.Remove(id) {
		task.Resolve(types.TaskCancelled, nil, poolerr.ErrCancelled)
		return nil
	}

	m.cancelsMu.Lock()
	cancel, ok := m.cancels[id]
	m.cancelsMu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// GetResult returns the (possibly still in-flight) task by ID.
func (m *Manager) GetResult(id types.TaskID) (*types.Task, error) {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", poolerr.ErrNotFound, id)
	}
	return task, nil
}

// GetStatus aggregates instance and queue state into a PoolStatus (spec
// §4.6/§6.1).
func (m *Manager) GetStatus() types.PoolStatus {
	snapshots := m.instanceSnapshot()

	status := types.PoolStatus{
		TotalInstances:       len(snapshots),
		InstancesByStatus:    make(map[types.InstanceStatus]int),
		QueueDepthByPriority: m.queue.DepthByPriority(),
	}

	var totalResp time.Duration
	var allResp []time.Duration
	var runningCPUSum float64
	var runningCount int
	for _, s := range snapshots {
		status.InstancesByStatus[s.Status]++
		status.TotalRequests += s.ProcessedRequests + s.ErrorCount
		status.SuccessfulRequests += s.ProcessedRequests
		status.FailedRequests += s.ErrorCount
		status.MemoryMB += s.MemoryMB
		// Scaling's CPU predicates are defined over the average across
		// RUNNING instances (spec §4.6), not the pool-wide sum.
		if s.Status == types.InstanceRunning {
			runningCPUSum += s.CPUPercent
			runningCount++
		}
		for _, rt := range s.ResponseTimes {
			totalResp += rt
			allResp = append(allResp, rt)
		}
	}
	if runningCount > 0 {
		status.CPUPercent = runningCPUSum / float64(runningCount)
	}
	if len(allResp) > 0 {
		status.AverageResponseTime = totalResp / time.Duration(len(allResp))
		status.P95ResponseTime = percentile(allResp, 0.95)
	}

	return status
}

// GetStatistics is an alias for GetStatus kept distinct in the public API
// (spec §6.1 exposes both a lightweight /status and a heavier
// /statistics endpoint; they share one aggregation today).
func (m *Manager) GetStatistics() types.PoolStatus {
	return m.GetStatus()
}

// Instances returns a read-only snapshot of every instance, used by the
// HTTP gateway's /instances endpoint.
func (m *Manager) Instances() []types.InstanceSnapshot {
	return m.instanceSnapshot()
}
