// Package types defines the core domain models shared across the OCR pool:
// tasks, results, instance/task status enums, and the pool-wide snapshot
// types the gateway and scaling controller consume.
package types

import (
	"time"
)

// Priority orders tasks within the admission queue. Higher numeric value
// is serviced first.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityNormal:
		return "NORMAL"
	case PriorityLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// Priorities lists every sub-queue level in dispatch order, CRITICAL first.
var Priorities = [...]Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}

// TaskStatus is a task's position in its lifecycle DAG:
// PENDING -> (PROCESSING -> COMPLETED | FAILED) | CANCELLED.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

// IsTerminal reports whether status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// InstanceStatus is an Instance's lifecycle state.
type InstanceStatus string

const (
	InstanceStarting InstanceStatus = "STARTING"
	InstanceReady    InstanceStatus = "READY"
	InstanceIdle     InstanceStatus = "IDLE"
	InstanceRunning  InstanceStatus = "RUNNING"
	InstanceBusy     InstanceStatus = "BUSY"
	InstanceError    InstanceStatus = "ERROR"
	InstanceStopping InstanceStatus = "STOPPING"
	InstanceStopped  InstanceStatus = "STOPPED"
)

// DispatchEligible reports whether the dispatcher may select an instance in
// this state.
func (s InstanceStatus) DispatchEligible() bool {
	return s == InstanceReady || s == InstanceIdle
}

// PayloadKind tags which field of Payload is populated, replacing the
// content-sniffing heuristic of the original implementation with an
// explicit, caller-asserted type.
type PayloadKind string

const (
	PayloadBytes  PayloadKind = "bytes"
	PayloadBase64 PayloadKind = "base64"
	PayloadPath   PayloadKind = "path"
)

// Payload carries exactly one representation of the source image, tagged
// by Kind.
type Payload struct {
	Kind   PayloadKind `json:"kind"`
	Bytes  []byte      `json:"bytes,omitempty"`
	Base64 string      `json:"base64,omitempty"`
	Path   string      `json:"path,omitempty"`
}

// ROI is a caller-supplied region of interest, in source-image pixel space.
type ROI struct {
	X, Y, Width, Height int
}

// RecognizeOptions carries the subset of recognizer tuning knobs the core
// recognizes and passes through. Unrecognized keys arriving over HTTP are
// dropped at decode time because this struct only has fields for the ones
// listed in the Recognizer contract.
type RecognizeOptions struct {
	Detail        int     `json:"detail,omitempty"`
	Paragraph     bool    `json:"paragraph,omitempty"`
	MinSize       int     `json:"min_size,omitempty"`
	TextThreshold float64 `json:"text_threshold,omitempty"`
	LowText       float64 `json:"low_text,omitempty"`
	LinkThreshold float64 `json:"link_threshold,omitempty"`
	CanvasSize    int     `json:"canvas_size,omitempty"`
	MagRatio      float64 `json:"mag_ratio,omitempty"`
	Decoder       string  `json:"decoder,omitempty"`
	BeamWidth     int     `json:"beam_width,omitempty"`
	BatchSize     int     `json:"batch_size,omitempty"`
	AllowList     string  `json:"allowlist,omitempty"`
	BlockList     string  `json:"blocklist,omitempty"`
}

// TaskID uniquely identifies a Task (a UUID string).
type TaskID string

// Task is a unit of OCR work submitted to the pool.
type Task struct {
	ID             TaskID
	Payload        Payload
	ROI            *ROI
	TargetKeywords []string
	Priority       Priority
	Options        RecognizeOptions

	Status      TaskStatus
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	RetryCount int
	MaxRetries int

	Result *EnrichedResult
	Err    error

	// done is the one-shot completion handle described in spec §5; closing
	// it signals any ProcessSync waiter that Result/Err/Status are final.
	done chan struct{}
}

// NewTask builds a Task in PENDING status with its completion handle armed.
func NewTask(id TaskID, payload Payload, priority Priority, maxRetries int) *Task {
	return &Task{
		ID:         id,
		Payload:    payload,
		Priority:   priority,
		Status:     TaskPending,
		CreatedAt:  time.Now(),
		MaxRetries: maxRetries,
		done:       make(chan struct{}),
	}
}

// Done returns the channel that closes exactly once, when the task reaches
// a terminal status.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Resolve marks the task terminal and closes its completion handle. It is
// safe to call at most once per task. Resolve itself takes no lock; the
// callers keep to one call by ownership: Cancel resolves only a task it has
// just removed from the queue, and a worker only a task it has popped.
func (t *Task) Resolve(status TaskStatus, result *EnrichedResult, err error) {
	t.Status = status
	t.Result = result
	t.Err = err
	t.CompletedAt = time.Now()
	close(t.done)
}

// BBox is an axis-aligned bounding rectangle in source-image pixel space.
type BBox struct {
	X1, Y1, X2, Y2 int
}

// TextRegion is one normalized recognizer tuple.
type TextRegion struct {
	BBox       BBox    `json:"bbox"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// KeywordMatch records a target keyword located within a TextRegion.
type KeywordMatch struct {
	Keyword    string  `json:"keyword"`
	Text       string  `json:"text"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// EnrichedResult is the single, stable return shape of the pre/post
// pipeline: the normalized regions (OriginalResult and ProcessedResult
// currently hold the same slice), keyword matches (empty, never nil, when
// no keywords were requested), and informational optimization metadata.
type EnrichedResult struct {
	OriginalResult   []TextRegion           `json:"original_result"`
	ProcessedResult  []TextRegion           `json:"processed_result"`
	KeywordMatches   []KeywordMatch         `json:"keyword_matches"`
	OptimizationInfo map[string]interface{} `json:"optimization_info"`
}

// InstanceSnapshot is a read-only, point-in-time view of one Instance for
// reporting (HTTP /instances, PoolStatus aggregation).
type InstanceSnapshot struct {
	InstanceID        string
	Port              int
	Status            InstanceStatus
	CreatedAt         time.Time
	LastActivity      time.Time
	LastUsed          time.Time
	ProcessedRequests uint64
	ErrorCount        uint64
	ResponseTimes     []time.Duration
	MemoryMB          float64
	CPUPercent        float64
}

// InstanceSnapshotDetail extends InstanceSnapshot with the fields the
// HTTP gateway's GET /instances/{id} exposes beyond the list view: the
// instance's lifecycle event log and its model configuration (languages,
// GPU flag, storage directory). LastUsed and ResponseTimes come from the
// embedded snapshot; ResponseTimes is the whole window of up to 100
// samples, not only the last 10, and there is no separate request-count
// field.
type InstanceSnapshotDetail struct {
	InstanceSnapshot
	Logs            []string
	Languages       []string
	GPUEnabled      bool
	ModelStorageDir string
}

// PoolStatus is the aggregated, derived snapshot of the whole pool.
type PoolStatus struct {
	TotalInstances       int
	InstancesByStatus    map[InstanceStatus]int
	TotalRequests        uint64
	SuccessfulRequests   uint64
	FailedRequests       uint64
	AverageResponseTime  time.Duration
	P95ResponseTime      time.Duration
	MemoryMB             float64
	CPUPercent           float64 // average across RUNNING instances, per spec §4.6
	QueueDepthByPriority map[Priority]int
}

// ScalingConfig bounds and tunes the Scaling Controller.
type ScalingConfig struct {
	MinInstances int
	MaxInstances int

	QueueUpThreshold   int
	LatencyUpThreshold time.Duration
	CPUUpThreshold     float64
	CPUDownThreshold   float64
	IdleDownThreshold  float64

	CooldownSeconds int
	Step            int
}

// ScalingAction is the verdict of one scaling controller tick.
type ScalingAction string

const (
	ScalingNone   ScalingAction = "NONE"
	ScalingGrow   ScalingAction = "GROW"
	ScalingShrink ScalingAction = "SHRINK"
)

// ScalingDecision is one entry of the scaling controller's decision log.
type ScalingDecision struct {
	Timestamp time.Time
	Snapshot  PoolStatus
	Action    ScalingAction
	Amount    int
	Reason    string
}
