// Package queue implements the priority admission queue of spec §4.4: four
// FIFO sub-queues (CRITICAL, HIGH, NORMAL, LOW), a bounded admission size
// shared across all four, and a pop order that always drains a higher
// priority sub-queue completely before touching a lower one. Within one
// priority, order is strictly FIFO; across priorities, no ordering
// guarantee is made on completion, only on admission-to-pop order.
package queue

import (
	"fmt"
	"sync"

	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
)

// Queue is the bounded, priority-ordered admission queue feeding the
// worker pool.
type Queue struct {
	mu       sync.Mutex
	maxSize  int
	byPrio   map[types.Priority][]*types.Task
	byID     map[types.TaskID]*types.Task
	notEmpty chan struct{}
}

// New builds a Queue admitting at most maxSize tasks in total across all
// priority levels.
func New(maxSize int) *Queue {
	q := &Queue{
		maxSize:  maxSize,
		byPrio:   make(map[types.Priority][]*types.Task),
		byID:     make(map[types.TaskID]*types.Task),
		notEmpty: make(chan struct{}, 1),
	}
	for _, p := range types.Priorities {
		q.byPrio[p] = make([]*types.Task, 0)
	}
	return q
}

// Push admits task into its priority's sub-queue, FIFO, rejecting it with
// poolerr.ErrQueueFull once the queue's total admitted count reaches
// maxSize (spec §4.4: the bound is shared, not per-priority).
func (q *Queue) Push(task *types.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.byID) >= q.maxSize {
		return fmt.Errorf("%w: %d tasks admitted", poolerr.ErrQueueFull, q.maxSize)
	}

	q.byPrio[task.Priority] = append(q.byPrio[task.Priority], task)
	q.byID[task.ID] = task
	q.signal()
	return nil
}

// Pop removes and returns the head of the highest non-empty priority
// sub-queue, in CRITICAL > HIGH > NORMAL > LOW order. It returns false if
// the queue is empty.
func (q *Queue) Pop() (*types.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue) popLocked() (*types.Task, bool) {
	for _, p := range types.Priorities {
		bucket := q.byPrio[p]
		if len(bucket) == 0 {
			continue
		}
		task := bucket[0]
		q.byPrio[p] = bucket[1:]
		delete(q.byID, task.ID)
		return task, true
	}
	return nil, false
}

// NotEmpty returns a channel a worker can select on: every Push sends a
// value unless one is already pending (the channel buffers at most one and
// is never closed). Workers must still re-check Pop after waking, since
// multiple workers race to drain the same signal.
func (q *Queue) NotEmpty() <-chan struct{} {
	return q.notEmpty
}

func (q *Queue) signal() {
	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}

// Remove removes a still-pending task by ID, used by Cancel before a task
// has been dispatched to a worker. It reports whether the task was found
// pending (false means it had already been popped, or never existed).
func (q *Queue) Remove(id types.TaskID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.byID[id]
	if !ok {
		return false
	}
	bucket := q.byPrio[task.Priority]
	for i, t := range bucket {
		if t.ID == id {
			q.byPrio[task.Priority] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(q.byID, id)
	return true
}

// Len returns the total number of admitted, not-yet-popped tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byID)
}

// DepthByPriority reports the current pending count per priority, used by
// PoolStatus and the scaling controller.
func (q *Queue) DepthByPriority() map[types.Priority]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[types.Priority]int, len(types.Priorities))
	for _, p := range types.Priorities {
		out[p] = len(q.byPrio[p])
	}
	return out
}
