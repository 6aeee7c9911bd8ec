package pool

import (
	"context"
	"testing"
	"time"

	"github.com/honygo/ocrpool/internal/instance"
	"github.com/honygo/ocrpool/internal/keyword"
	"github.com/honygo/ocrpool/internal/pipeline"
	"github.com/honygo/ocrpool/internal/portalloc"
	"github.com/honygo/ocrpool/internal/recognizer"
	"github.com/honygo/ocrpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory(tuples []recognizer.Tuple) instance.Factory {
	return func(ctx context.Context, modelDir string, languages []string, gpuEnabled bool) (recognizer.Recognizer, error) {
		return &recognizer.Fake{Tuples: tuples}, nil
	}
}

func testPNG() types.Payload {
	// Minimal valid-looking PNG signature; the Fake recognizer never
	// actually decodes pixels, but the pipeline's decode stage does, so
	// this must be a real (tiny) PNG.
	raw := []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xde, 0x00, 0x00, 0x00, 0x0c, 0x49, 0x44, 0x41,
		0x54, 0x08, 0xd7, 0x63, 0xf8, 0xcf, 0xc0, 0x00,
		0x00, 0x03, 0x01, 0x01, 0x00, 0x18, 0xdd, 0x8d,
		0xb0, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e,
		0x44, 0xae, 0x42, 0x60, 0x82,
	}
	return types.Payload{Kind: types.PayloadBytes, Bytes: raw}
}

func newTestManager(t *testing.T, tuples []recognizer.Tuple) *Manager {
	t.Helper()
	return newTestManagerWithWorkers(t, tuples, 2)
}

func newTestManagerWithWorkers(t *testing.T, tuples []recognizer.Tuple, workerCount int) *Manager {
	t.Helper()
	pipe := pipeline.New(pipeline.DefaultConfig(), keyword.New(keyword.DefaultOptions()), nil)
	cfg := Config{MinInstances: 1, MaxInstances: 3, WorkerCount: workerCount, MaxQueueSize: 10, MaxRetries: 0}
	m := NewManager(cfg, testFactory(tuples), portalloc.New(9100, 10), instance.Config{ModelDir: "/models", Pipeline: pipe}, nil)
	require.NoError(t, m.StartService(context.Background()))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func TestManager_ProcessSync_ReturnsResult(t *testing.T) {
	m := newTestManager(t, []recognizer.Tuple{
		{Quad: [4][2]int{{0, 0}, {10, 0}, {10, 5}, {0, 5}}, Text: "invoice total", Confidence: 0.9},
	})

	task := types.NewTask("t1", testPNG(), types.PriorityNormal, 0)
	task.TargetKeywords = []string{"invoice total"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := m.ProcessSync(ctx, task)
	require.NoError(t, err)
	require.Len(t, result.KeywordMatches, 1)
	assert.Equal(t, "invoice total", result.KeywordMatches[0].Keyword)
}

func TestManager_GetStatus_ReflectsInstanceCount(t *testing.T) {
	m := newTestManager(t, nil)
	status := m.GetStatus()
	assert.Equal(t, 1, status.TotalInstances)
}

func TestManager_Cancel_PendingTask(t *testing.T) {
	m := newTestManagerWithWorkers(t, nil, 0)

	task := types.NewTask("t2", testPNG(), types.PriorityLow, 0)
	require.NoError(t, m.Submit(task))
	require.NoError(t, m.Cancel("t2"))

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelled task never resolved")
	}
	assert.Equal(t, types.TaskCancelled, task.Status)
}

func TestManager_GrowAndShrink(t *testing.T) {
	m := newTestManager(t, nil)

	started, err := m.Grow(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, started)
	assert.Equal(t, 3, m.GetStatus().TotalInstances)

	// Shrink only drains IDLE instances (spec §4.6); simulate these having
	// already served at least one request and gone idle.
	for _, inst := range m.instances {
		inst.MarkIdle()
	}

	stopped, err := m.Shrink(2)
	require.NoError(t, err)
	assert.Equal(t, 2, stopped)
	assert.Equal(t, 1, m.GetStatus().TotalInstances)
}
