// Package instance implements the Instance component of spec §4.1: a
// single wrapped Recognizer with identity, lifecycle state, usage
// counters, and a bounded response-time history.
//
// State machine (spec §4.1):
//
//	STARTING --warmup ok--> READY --first dispatch--> IDLE <-> RUNNING
//	   |                      |                          |
//	   +--init fail--> ERROR <--fatal error--------------+
//	                    |
//	          restart() |
//	                    v
//	                 STARTING
//	any state --stop()--> STOPPING --> STOPPED
package instance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/honygo/ocrpool/internal/pipeline"
	"github.com/honygo/ocrpool/internal/recognizer"
	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
	"go.uber.org/zap"
)

const responseTimeWindow = 100
const maxLogEvents = 50

// Factory builds a fresh Recognizer for a given model directory. Supplied
// at Instance construction so tests can inject recognizer.Fake without any
// of this package depending on a concrete engine.
type Factory func(ctx context.Context, modelDir string, languages []string, gpuEnabled bool) (recognizer.Recognizer, error)

// PortAllocator hands out and reclaims the TCP-style port identities
// instances are tagged with (spec §5: "a small critical section around a
// set of integers").
type PortAllocator interface {
	Acquire() (int, error)
	Release(port int)
}

// Config pins the parameters an Instance needs at start() time.
type Config struct {
	ModelDir   string
	Languages  []string
	GPUEnabled bool
	Pipeline   *pipeline.Pipeline
}

// Instance wraps one Recognizer with the bookkeeping spec §3 requires.
type Instance struct {
	id      string
	factory Factory
	ports   PortAllocator
	cfg     Config
	log     *zap.Logger

	mu                sync.Mutex
	status            types.InstanceStatus
	statusSince       time.Time
	port              int
	rec               recognizer.Recognizer
	createdAt         time.Time
	lastActivity      time.Time
	lastUsed          time.Time
	processedRequests uint64
	errorCount        uint64
	responseTimes     *ringBuffer
	memoryMB          float64
	cpuPercent        float64
	events            []string
}

// New constructs an Instance in STARTING status. Callers must call
// Start(ctx) before Recognize is usable.
func New(id string, factory Factory, ports PortAllocator, cfg Config, log *zap.Logger) *Instance {
	return &Instance{
		id:            id,
		factory:       factory,
		ports:         ports,
		cfg:           cfg,
		log:           log,
		status:        types.InstanceStarting,
		statusSince:   time.Now(),
		createdAt:     time.Now(),
		responseTimes: newRingBuffer(responseTimeWindow),
	}
}

// ID returns the instance's opaque identifier.
func (i *Instance) ID() string { return i.id }

// Status returns the current lifecycle state.
func (i *Instance) Status() types.InstanceStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// setStatus transitions status under lock; called both internally and by
// the Pool Manager while it holds the instance-table lock (spec §4.3: the
// dispatcher's selection-then-mark-RUNNING step must be atomic from the
// caller's point of view).
func (i *Instance) setStatus(s types.InstanceStatus) {
	i.mu.Lock()
	i.status = s
	i.statusSince = time.Now()
	i.mu.Unlock()
}

// TimeInStatus reports how long the instance has held its current
// lifecycle status, used by the health-check loop to find ERROR instances
// that have exceeded their grace period (spec §4.5).
func (i *Instance) TimeInStatus() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return time.Since(i.statusSince)
}

// logEvent appends a bounded lifecycle record, surfaced via GET
// /instances/{id}/logs (spec §6.1). It is a lightweight audit trail, not a
// substitute for the structured zap logger.
func (i *Instance) logEvent(format string, args ...interface{}) {
	i.mu.Lock()
	i.events = append(i.events, fmt.Sprintf("%s %s", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...)))
	if len(i.events) > maxLogEvents {
		i.events = i.events[len(i.events)-maxLogEvents:]
	}
	i.mu.Unlock()
}

// Logs returns a copy of the most recent lifecycle events.
func (i *Instance) Logs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, len(i.events))
	copy(out, i.events)
	return out
}

// MarkRunning transitions IDLE/READY -> RUNNING. Used by the dispatcher to
// atomically claim an instance before handing it to a worker.
func (i *Instance) MarkRunning() {
	i.setStatus(types.InstanceRunning)
}

// MarkIdle transitions RUNNING -> IDLE, called by the worker once
// Recognize returns.
func (i *Instance) MarkIdle() {
	i.setStatus(types.InstanceIdle)
}

// Start loads the model directory, runs a warmup recognition against a
// synthetic image, and transitions STARTING -> READY. A missing model
// directory or a warmup panic-equivalent (error) leaves the instance in
// ERROR and returns poolerr.ErrFatalInstance wrapped with detail.
func (i *Instance) Start(ctx context.Context) error {
	port, err := i.ports.Acquire()
	if err != nil {
		i.setStatus(types.InstanceError)
		i.logEvent("start failed: acquire port: %v", err)
		return fmt.Errorf("acquire port: %w", err)
	}

	rec, err := i.factory(ctx, i.cfg.ModelDir, i.cfg.Languages, i.cfg.GPUEnabled)
	if err != nil {
		i.ports.Release(port)
		i.setStatus(types.InstanceError)
		i.logEvent("start failed: load model from %s: %v", i.cfg.ModelDir, err)
		return fmt.Errorf("%w: load model from %s: %v", poolerr.ErrFatalInstance, i.cfg.ModelDir, err)
	}

	i.mu.Lock()
	i.port = port
	i.rec = rec
	i.mu.Unlock()

	warmupImg := pipeline.SyntheticWarmupImage()
	if _, err := rec.ReadText(ctx, warmupImg, types.RecognizeOptions{}); err != nil {
		i.setStatus(types.InstanceError)
		i.logEvent("start failed: warmup recognition: %v", err)
		return fmt.Errorf("%w: warmup recognition: %v", poolerr.ErrFatalInstance, err)
	}

	i.setStatus(types.InstanceReady)
	i.logEvent("ready on port %d", port)
	if i.log != nil {
		i.log.Info("instance ready", zap.String("instance_id", i.id), zap.Int("port", port))
	}
	return nil
}

// Recognize runs the full preprocess -> recognize -> postprocess pipeline
// against payload image bytes, recording the response time and
// transitioning IDLE/READY -> RUNNING -> IDLE (or -> ERROR on a fatal
// Recognizer failure).
func (i *Instance) Recognize(ctx context.Context, imageBytes []byte, keywords []string, opts types.RecognizeOptions) (*types.EnrichedResult, error) {
	i.MarkRunning()
	start := time.Now()

	result, err := i.cfg.Pipeline.Run(ctx, imageBytes, keywords, opts, i.rec)

	elapsed := time.Since(start)
	i.mu.Lock()
	i.lastActivity = time.Now()
	i.lastUsed = i.lastActivity
	i.responseTimes.add(elapsed)
	if err != nil {
		i.errorCount++
	} else {
		i.processedRequests++
	}
	i.mu.Unlock()

	if err != nil {
		if isFatal(err) {
			i.setStatus(types.InstanceError)
			i.logEvent("fatal error: %v", err)
		} else {
			i.MarkIdle()
		}
		return nil, err
	}

	i.MarkIdle()
	return result, nil
}

func isFatal(err error) bool {
	return errors.Is(err, poolerr.ErrFatalInstance)
}

// Stop releases the Recognizer and port, transitioning STOPPING ->
// STOPPED. Idempotent: a second call is a no-op.
func (i *Instance) Stop() error {
	i.mu.Lock()
	if i.status == types.InstanceStopped {
		i.mu.Unlock()
		return nil
	}
	i.status = types.InstanceStopping
	rec := i.rec
	port := i.port
	i.mu.Unlock()

	var err error
	if rec != nil {
		err = rec.Close()
	}
	i.ports.Release(port)
	i.setStatus(types.InstanceStopped)
	i.logEvent("stopped")
	return err
}

// Restart re-runs Start after a fatal error, per spec §4.1.
func (i *Instance) Restart(ctx context.Context) error {
	i.setStatus(types.InstanceStarting)
	i.logEvent("restarting")
	return i.Start(ctx)
}

// LoadScore implements the weighted formula of spec §4.3: lower is
// better. Factors: work done, observed latency, observed failure rate,
// resident footprint.
func (i *Instance) LoadScore() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loadScoreLocked()
}

func (i *Instance) loadScoreLocked() float64 {
	processed := i.processedRequests
	avgRespSec := i.responseTimes.average().Seconds()
	errRate := float64(i.errorCount) / float64(maxU64(processed, 1))
	return 0.3*float64(processed) + 0.4*avgRespSec + 0.2*errRate + 0.1*i.memoryMB
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// UpdateResourceUsage is called by the health-check loop (spec §4.5) with
// freshly sampled CPU/memory figures.
func (i *Instance) UpdateResourceUsage(memoryMB, cpuPercent float64) {
	i.mu.Lock()
	i.memoryMB = memoryMB
	i.cpuPercent = cpuPercent
	i.mu.Unlock()
}

// Snapshot renders the read-only view used for reporting.
func (i *Instance) Snapshot() types.InstanceSnapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return types.InstanceSnapshot{
		InstanceID:        i.id,
		Port:              i.port,
		Status:            i.status,
		CreatedAt:         i.createdAt,
		LastActivity:      i.lastActivity,
		LastUsed:          i.lastUsed,
		ProcessedRequests: i.processedRequests,
		ErrorCount:        i.errorCount,
		ResponseTimes:     i.responseTimes.snapshot(),
		MemoryMB:          i.memoryMB,
		CPUPercent:        i.cpuPercent,
	}
}

// P95ResponseTime reports the 95th percentile of this instance's recent
// response times. The scaling controller does not call it; it reads the
// pool-wide PoolStatus.P95ResponseTime instead.
func (i *Instance) P95ResponseTime() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.responseTimes.percentile(0.95)
}
