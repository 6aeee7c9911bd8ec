package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/honygo/ocrpool/internal/queue"
	"github.com/honygo/ocrpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstance struct {
	id     string
	result *types.EnrichedResult
	err    error
	calls  int
	mu     sync.Mutex
}

func (f *fakeInstance) ID() string { return f.id }

func (f *fakeInstance) Recognize(ctx context.Context, imageBytes []byte, keywords []string, opts types.RecognizeOptions) (*types.EnrichedResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeInstanceSource struct {
	mu        sync.Mutex
	instances []Instance
}

func (f *fakeInstanceSource) Acquire() (Instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.instances) == 0 {
		return nil, false
	}
	return f.instances[0], true
}

type noopCancels struct{}

func (noopCancels) Register(types.TaskID, context.CancelFunc) {}
func (noopCancels) Unregister(types.TaskID)                   {}

func newTestPayload() types.Payload {
	return types.Payload{Kind: types.PayloadBytes, Bytes: []byte("\x89PNG\r\n\x1a\n")}
}

func TestPool_ExecutesTaskAgainstAcquiredInstance(t *testing.T) {
	q := queue.New(10)
	inst := &fakeInstance{id: "inst-1", result: &types.EnrichedResult{KeywordMatches: []types.KeywordMatch{}}}
	src := &fakeInstanceSource{instances: []Instance{inst}}

	pool := NewPool(DefaultConfig(2), q, src, noopCancels{}, nil)
	require.NoError(t, pool.Start())
	defer pool.Stop()

	task := types.NewTask("task-1", newTestPayload(), types.PriorityNormal, 0)
	require.NoError(t, q.Push(task))

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not complete")
	}

	assert.Equal(t, types.TaskCompleted, task.Status)
	assert.NoError(t, task.Err)
}

func TestPool_RetriesOnRecognitionErrorUpToMaxRetries(t *testing.T) {
	q := queue.New(10)
	inst := &fakeInstance{id: "inst-1", err: fmt.Errorf("transient recognizer failure")}
	src := &fakeInstanceSource{instances: []Instance{inst}}

	pool := NewPool(DefaultConfig(1), q, src, noopCancels{}, nil)
	require.NoError(t, pool.Start())
	defer pool.Stop()

	task := types.NewTask("task-2", newTestPayload(), types.PriorityNormal, 1)
	require.NoError(t, q.Push(task))

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not complete")
	}

	assert.Equal(t, types.TaskFailed, task.Status)
	inst.mu.Lock()
	defer inst.mu.Unlock()
	assert.Equal(t, 2, inst.calls) // initial attempt + 1 retry
}

func TestPool_StopIsIdempotent(t *testing.T) {
	q := queue.New(10)
	pool := NewPool(DefaultConfig(0), q, &fakeInstanceSource{}, noopCancels{}, nil)
	require.NoError(t, pool.Start())
	assert.True(t, pool.IsStarted())
	pool.Stop()
	pool.Stop() // idempotent
}

func TestPool_StartTwiceErrors(t *testing.T) {
	q := queue.New(10)
	pool := NewPool(DefaultConfig(1), q, &fakeInstanceSource{}, noopCancels{}, nil)
	require.NoError(t, pool.Start())
	defer pool.Stop()
	assert.Error(t, pool.Start())
}
