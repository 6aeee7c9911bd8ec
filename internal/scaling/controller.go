// Package scaling implements the Scaling Controller of spec §4.6: a
// periodic tick evaluating grow/shrink predicates against pool status,
// bounded by [min,max] instances and a cooldown between actions, logging
// every decision (including NONE) for observability.
package scaling

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/honygo/ocrpool/pkg/types"
)

// Pool is the subset of *pool.Manager the controller needs.
type Pool interface {
	GetStatus() types.PoolStatus
	Grow(ctx context.Context, n int) (int, error)
	Shrink(n int) (int, error)
}

// Controller runs the periodic scale-up/scale-down evaluation loop.
type Controller struct {
	cfg  types.ScalingConfig
	pool Pool
	log  *zap.Logger

	tickInterval time.Duration

	mu           sync.Mutex
	lastAction   time.Time
	decisionLog  []types.ScalingDecision
	maxLogLength int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

const defaultMaxLogLength = 500

// New builds a Controller. tickInterval governs how often Evaluate runs
// inside Run; call Evaluate directly in tests for deterministic control.
func New(cfg types.ScalingConfig, p Pool, tickInterval time.Duration, log *zap.Logger) *Controller {
	return &Controller{
		cfg:          cfg,
		pool:         p,
		log:          log,
		tickInterval: tickInterval,
		maxLogLength: defaultMaxLogLength,
		stopCh:       make(chan struct{}),
	}
}

// Run starts the periodic tick loop; it returns immediately, the loop runs
// in its own goroutine until Stop is called.
func (c *Controller) Run() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.Evaluate(context.Background())
			}
		}
	}()
}

// Stop ends the tick loop and waits for it to return.
func (c *Controller) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// Evaluate runs one scaling decision: compute the pool's current status,
// decide NONE/GROW/SHRINK, act if the cooldown has elapsed, and append the
// decision to the log regardless of whether an action was taken.
func (c *Controller) Evaluate(ctx context.Context) types.ScalingDecision {
	status := c.pool.GetStatus()
	action, amount, reason := decide(c.cfg, status)

	decision := types.ScalingDecision{
		Timestamp: time.Now(),
		Snapshot:  status,
		Action:    action,
		Amount:    amount,
		Reason:    reason,
	}

	c.mu.Lock()
	inCooldown := time.Since(c.lastAction) < time.Duration(c.cfg.CooldownSeconds)*time.Second
	c.mu.Unlock()

	if action != types.ScalingNone && inCooldown {
		decision.Action = types.ScalingNone
		decision.Amount = 0
		decision.Reason = "cooldown: " + reason
	} else if action == types.ScalingGrow {
		if _, err := c.pool.Grow(ctx, amount); err != nil && c.log != nil {
			c.log.Error("scale-up failed", zap.Error(err))
		}
		c.mu.Lock()
		c.lastAction = time.Now()
		c.mu.Unlock()
	} else if action == types.ScalingShrink {
		if _, err := c.pool.Shrink(amount); err != nil && c.log != nil {
			c.log.Error("scale-down failed", zap.Error(err))
		}
		c.mu.Lock()
		c.lastAction = time.Now()
		c.mu.Unlock()
	}

	c.record(decision)
	return decision
}

func (c *Controller) record(d types.ScalingDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisionLog = append(c.decisionLog, d)
	if len(c.decisionLog) > c.maxLogLength {
		c.decisionLog = c.decisionLog[len(c.decisionLog)-c.maxLogLength:]
	}
}

// DecisionLog returns a copy of the most recent decisions, oldest first.
func (c *Controller) DecisionLog() []types.ScalingDecision {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ScalingDecision, len(c.decisionLog))
	copy(out, c.decisionLog)
	return out
}

// decide applies the spec §4.6 predicates in priority order: scale-up
// signals (queue depth, latency, CPU) take precedence over scale-down
// (empty queue, low CPU, and high idle fraction).
func decide(cfg types.ScalingConfig, status types.PoolStatus) (types.ScalingAction, int, string) {
	queueDepth := 0
	for _, n := range status.QueueDepthByPriority {
		queueDepth += n
	}

	if queueDepth > cfg.QueueUpThreshold {
		return types.ScalingGrow, cfg.Step, "queue depth exceeds threshold"
	}
	if cfg.LatencyUpThreshold > 0 && status.P95ResponseTime > cfg.LatencyUpThreshold {
		return types.ScalingGrow, cfg.Step, "p95 response time exceeds threshold"
	}
	if cfg.CPUUpThreshold > 0 && status.CPUPercent > cfg.CPUUpThreshold {
		return types.ScalingGrow, cfg.Step, "cpu usage exceeds up-threshold"
	}

	if status.TotalInstances > cfg.MinInstances && queueDepth == 0 {
		idleCount := status.InstancesByStatus[types.InstanceIdle]
		idleFraction := float64(idleCount) / float64(status.TotalInstances)
		belowCPU := cfg.CPUDownThreshold <= 0 || status.CPUPercent < cfg.CPUDownThreshold
		aboveIdle := cfg.IdleDownThreshold <= 0 || idleFraction > cfg.IdleDownThreshold
		if belowCPU && aboveIdle {
			return types.ScalingShrink, cfg.Step, "low cpu and high idle fraction with empty queue"
		}
	}

	return types.ScalingNone, 0, "within thresholds"
}
