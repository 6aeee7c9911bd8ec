// Package metrics collects and exposes Prometheus metrics for the pool:
// task throughput/latency/errors (RED), instance counts by status and
// scaling actions (USE), adapted from this codebase's job-queue metrics
// to the OCR pool's task/instance domain.
//
// HTTP endpoint: /metrics on a dedicated port, scraped by Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/honygo/ocrpool/pkg/types"
)

// Collector owns every metric this pool exposes.
type Collector struct {
	tasksSubmitted prometheus.Counter
	tasksCompleted prometheus.Counter
	tasksFailed    prometheus.Counter
	tasksCancelled prometheus.Counter

	taskLatency prometheus.Histogram

	queueDepth       *prometheus.GaugeVec
	instancesByState *prometheus.GaugeVec

	scalingActions *prometheus.CounterVec
}

// NewCollector builds and registers every metric against the default
// Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ocrpool_tasks_submitted_total",
			Help: "Total number of tasks admitted to the queue",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ocrpool_tasks_completed_total",
			Help: "Total number of tasks completed successfully",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ocrpool_tasks_failed_total",
			Help: "Total number of tasks that failed permanently",
		}),
		tasksCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ocrpool_tasks_cancelled_total",
			Help: "Total number of tasks cancelled before completion",
		}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ocrpool_task_latency_seconds",
			Help:    "End-to-end task processing latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ocrpool_queue_depth",
			Help: "Current number of admitted, not-yet-dispatched tasks, by priority",
		}, []string{"priority"}),
		instancesByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ocrpool_instances",
			Help: "Current number of instances, by lifecycle status",
		}, []string{"status"}),
		scalingActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocrpool_scaling_actions_total",
			Help: "Total number of scaling controller decisions, by action",
		}, []string{"action"}),
	}

	prometheus.MustRegister(
		c.tasksSubmitted,
		c.tasksCompleted,
		c.tasksFailed,
		c.tasksCancelled,
		c.taskLatency,
		c.queueDepth,
		c.instancesByState,
		c.scalingActions,
	)

	return c
}

// RecordSubmit records task admission.
func (c *Collector) RecordSubmit() {
	c.tasksSubmitted.Inc()
}

// RecordTerminal records a task reaching a terminal status, with its
// end-to-end latency when it completed successfully.
func (c *Collector) RecordTerminal(status types.TaskStatus, latencySeconds float64) {
	switch status {
	case types.TaskCompleted:
		c.tasksCompleted.Inc()
		c.taskLatency.Observe(latencySeconds)
	case types.TaskFailed:
		c.tasksFailed.Inc()
	case types.TaskCancelled:
		c.tasksCancelled.Inc()
	}
}

// UpdateQueueDepth refreshes the per-priority queue depth gauge.
func (c *Collector) UpdateQueueDepth(depth map[types.Priority]int) {
	for p, n := range depth {
		c.queueDepth.WithLabelValues(p.String()).Set(float64(n))
	}
}

// UpdateInstanceStates refreshes the per-status instance count gauge.
func (c *Collector) UpdateInstanceStates(byStatus map[types.InstanceStatus]int) {
	for _, s := range []types.InstanceStatus{
		types.InstanceStarting, types.InstanceReady, types.InstanceIdle,
		types.InstanceRunning, types.InstanceError, types.InstanceStopping, types.InstanceStopped,
	} {
		c.instancesByState.WithLabelValues(string(s)).Set(float64(byStatus[s]))
	}
}

// RecordScalingAction increments the counter for a scaling decision.
func (c *Collector) RecordScalingAction(action types.ScalingAction) {
	c.scalingActions.WithLabelValues(string(action)).Inc()
}

// StartServer starts a dedicated Prometheus /metrics HTTP server on port.
// It blocks; callers run it in its own goroutine.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, mux)
}
