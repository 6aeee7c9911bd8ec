package scaling

import (
	"context"
	"testing"
	"time"

	"github.com/honygo/ocrpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePool struct {
	status      types.PoolStatus
	grown       int
	shrunk      int
	grownCalls  int
	shrinkCalls int
}

func (f *fakePool) GetStatus() types.PoolStatus { return f.status }

func (f *fakePool) Grow(ctx context.Context, n int) (int, error) {
	f.grown += n
	f.grownCalls++
	return n, nil
}

func (f *fakePool) Shrink(n int) (int, error) {
	f.shrunk += n
	f.shrinkCalls++
	return n, nil
}

func baseConfig() types.ScalingConfig {
	return types.ScalingConfig{
		MinInstances:       1,
		MaxInstances:       10,
		QueueUpThreshold:   5,
		LatencyUpThreshold: time.Second,
		CPUUpThreshold:     80,
		CPUDownThreshold:   20,
		IdleDownThreshold:  0.5,
		CooldownSeconds:    0,
		Step:               1,
	}
}

func TestEvaluate_GrowsOnQueueDepth(t *testing.T) {
	p := &fakePool{status: types.PoolStatus{
		TotalInstances:       2,
		QueueDepthByPriority: map[types.Priority]int{types.PriorityNormal: 10},
	}}
	c := New(baseConfig(), p, time.Hour, nil)

	decision := c.Evaluate(context.Background())
	assert.Equal(t, types.ScalingGrow, decision.Action)
	assert.Equal(t, 1, p.grownCalls)
}

func TestEvaluate_ShrinksOnIdleAndLowQueue(t *testing.T) {
	p := &fakePool{status: types.PoolStatus{
		TotalInstances:       4,
		InstancesByStatus:    map[types.InstanceStatus]int{types.InstanceIdle: 3},
		QueueDepthByPriority: map[types.Priority]int{},
		CPUPercent:           5,
	}}
	c := New(baseConfig(), p, time.Hour, nil)

	decision := c.Evaluate(context.Background())
	assert.Equal(t, types.ScalingShrink, decision.Action)
	assert.Equal(t, 1, p.shrinkCalls)
}

func TestEvaluate_NoneWithinThresholds(t *testing.T) {
	p := &fakePool{status: types.PoolStatus{
		TotalInstances:       2,
		InstancesByStatus:    map[types.InstanceStatus]int{types.InstanceIdle: 1, types.InstanceRunning: 1},
		QueueDepthByPriority: map[types.Priority]int{types.PriorityNormal: 1},
		CPUPercent:           50,
	}}
	c := New(baseConfig(), p, time.Hour, nil)

	decision := c.Evaluate(context.Background())
	assert.Equal(t, types.ScalingNone, decision.Action)
}

func TestEvaluate_CooldownSuppressesAction(t *testing.T) {
	p := &fakePool{status: types.PoolStatus{
		TotalInstances:       2,
		QueueDepthByPriority: map[types.Priority]int{types.PriorityNormal: 10},
	}}
	cfg := baseConfig()
	cfg.CooldownSeconds = 60
	c := New(cfg, p, time.Hour, nil)

	first := c.Evaluate(context.Background())
	require.Equal(t, types.ScalingGrow, first.Action)

	second := c.Evaluate(context.Background())
	assert.Equal(t, types.ScalingNone, second.Action)
	assert.Equal(t, 1, p.grownCalls) // second evaluation suppressed by cooldown
}

func TestDecisionLog_CapturesEveryEvaluation(t *testing.T) {
	p := &fakePool{status: types.PoolStatus{TotalInstances: 1, QueueDepthByPriority: map[types.Priority]int{}}}
	c := New(baseConfig(), p, time.Hour, nil)

	c.Evaluate(context.Background())
	c.Evaluate(context.Background())

	assert.Len(t, c.DecisionLog(), 2)
}
