package queue

import (
	"errors"
	"testing"

	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(id string, p types.Priority) *types.Task {
	return types.NewTask(types.TaskID(id), types.Payload{Kind: types.PayloadBytes}, p, 0)
}

func TestPush_RejectsWhenFull(t *testing.T) {
	q := New(2)
	require.NoError(t, q.Push(newTask("a", types.PriorityNormal)))
	require.NoError(t, q.Push(newTask("b", types.PriorityNormal)))

	err := q.Push(newTask("c", types.PriorityNormal))
	require.Error(t, err)
	assert.True(t, errors.Is(err, poolerr.ErrQueueFull))
}

func TestPop_DrainsHigherPriorityFirst(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Push(newTask("low-1", types.PriorityLow)))
	require.NoError(t, q.Push(newTask("crit-1", types.PriorityCritical)))
	require.NoError(t, q.Push(newTask("normal-1", types.PriorityNormal)))
	require.NoError(t, q.Push(newTask("crit-2", types.PriorityCritical)))

	order := []string{}
	for {
		task, ok := q.Pop()
		if !ok {
			break
		}
		order = append(order, string(task.ID))
	}

	assert.Equal(t, []string{"crit-1", "crit-2", "normal-1", "low-1"}, order)
}

func TestPop_FIFOWithinPriority(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Push(newTask("first", types.PriorityHigh)))
	require.NoError(t, q.Push(newTask("second", types.PriorityHigh)))
	require.NoError(t, q.Push(newTask("third", types.PriorityHigh)))

	first, _ := q.Pop()
	second, _ := q.Pop()
	third, _ := q.Pop()

	assert.Equal(t, types.TaskID("first"), first.ID)
	assert.Equal(t, types.TaskID("second"), second.ID)
	assert.Equal(t, types.TaskID("third"), third.ID)
}

func TestPop_EmptyQueue(t *testing.T) {
	q := New(10)
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestRemove_PendingTask(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Push(newTask("a", types.PriorityNormal)))
	require.NoError(t, q.Push(newTask("b", types.PriorityNormal)))

	assert.True(t, q.Remove("a"))
	assert.False(t, q.Remove("a"))
	assert.Equal(t, 1, q.Len())

	task, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, types.TaskID("b"), task.ID)
}

func TestDepthByPriority(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Push(newTask("a", types.PriorityCritical)))
	require.NoError(t, q.Push(newTask("b", types.PriorityCritical)))
	require.NoError(t, q.Push(newTask("c", types.PriorityLow)))

	depth := q.DepthByPriority()
	assert.Equal(t, 2, depth[types.PriorityCritical])
	assert.Equal(t, 0, depth[types.PriorityHigh])
	assert.Equal(t, 0, depth[types.PriorityNormal])
	assert.Equal(t, 1, depth[types.PriorityLow])
}

func TestNotEmpty_SignalsOnPush(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Push(newTask("a", types.PriorityNormal)))

	select {
	case <-q.NotEmpty():
	default:
		t.Fatal("expected a signal after Push")
	}
}
