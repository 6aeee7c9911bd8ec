// Package gateway implements the HTTP Gateway of spec §6.1: a thin JSON
// surface in front of the Pool Manager, routed with gorilla/mux in the
// style this codebase's web UI servers use (a Server struct wrapping a
// *mux.Router, one handler method per route, a shared writeJSON helper).
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/honygo/ocrpool/pkg/poolerr"
	"github.com/honygo/ocrpool/pkg/types"
)

// Pool is the subset of *pool.Manager the gateway calls into.
type Pool interface {
	Submit(task *types.Task) error
	ProcessSync(ctx context.Context, task *types.Task) (*types.EnrichedResult, error)
	Cancel(id types.TaskID) error
	GetResult(id types.TaskID) (*types.Task, error)
	GetStatus() types.PoolStatus
	GetStatistics() types.PoolStatus
	Instances() []types.InstanceSnapshot
	InstanceByID(id string) (types.InstanceSnapshotDetail, bool)
	AddInstance(ctx context.Context) (string, error)
	RemoveInstance(id string) error
	StartInstance(ctx context.Context, id string) error
	StopInstance(id string) error
	RestartInstance(ctx context.Context, id string) error
}

// Server wires Pool into an http.Handler implementing spec §6.1's routes.
type Server struct {
	pool           Pool
	log            *zap.Logger
	requestTimeout time.Duration
	router         *mux.Router
	startedAt      time.Time
}

// New builds a Server and registers every route.
func New(p Pool, requestTimeout time.Duration, log *zap.Logger) *Server {
	s := &Server{
		pool:           p,
		log:            log,
		requestTimeout: requestTimeout,
		router:         mux.NewRouter(),
		startedAt:      time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	s.router.HandleFunc("/ocr", s.handleOCR).Methods(http.MethodPost)
	s.router.HandleFunc("/instances", s.handleListInstances).Methods(http.MethodGet)
	s.router.HandleFunc("/instances", s.handleAddInstance).Methods(http.MethodPost)
	s.router.HandleFunc("/instances/{id}", s.handleGetInstance).Methods(http.MethodGet)
	s.router.HandleFunc("/instances/{id}", s.handleDeleteInstance).Methods(http.MethodDelete)
	s.router.HandleFunc("/instances/{id}/logs", s.handleInstanceLogs).Methods(http.MethodGet)
	s.router.HandleFunc("/instances/{id}/start", s.handleInstanceStart).Methods(http.MethodPost)
	s.router.HandleFunc("/instances/{id}/stop", s.handleInstanceStop).Methods(http.MethodPost)
	s.router.HandleFunc("/instances/{id}/restart", s.handleInstanceRestart).Methods(http.MethodPost)
}

// --- responses ---

type envelope struct {
	Status         string      `json:"status"`
	Data           interface{} `json:"data,omitempty"`
	Error          string      `json:"error,omitempty"`
	ProcessingTime float64     `json:"processing_time,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(env); err != nil && s.log != nil {
		s.log.Error("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeOK(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data})
}

// writeError maps the poolerr taxonomy to the status codes spec §6.1
// requires, defaulting to 500 for anything unrecognized.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, poolerr.ErrBadImage):
		code = http.StatusBadRequest
	case errors.Is(err, poolerr.ErrQueueFull):
		code = http.StatusConflict
	case errors.Is(err, poolerr.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, poolerr.ErrTimeout):
		code = http.StatusGatewayTimeout
	case errors.Is(err, poolerr.ErrConfig):
		code = http.StatusInternalServerError
	}
	s.writeJSON(w, code, envelope{Status: "error", Error: err.Error()})
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeOK(w, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "ocrpool",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeOK(w, s.pool.GetStatus())
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	s.writeOK(w, s.pool.GetStatistics())
}

type ocrRequest struct {
	Image       string               `json:"image"`
	RequestType string               `json:"request_type"`
	Keywords    []string             `json:"keywords"`
	Priority    string               `json:"priority"`
	Options     types.RecognizeOptions `json:"options"`
}

// handleOCR decodes the request, submits a task, and blocks for the
// result within the configured request timeout (spec §6.1 POST /ocr).
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req ocrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", poolerr.ErrBadImage, err))
		return
	}
	if req.Image == "" {
		s.writeError(w, fmt.Errorf("%w: image is required", poolerr.ErrBadImage))
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid base64: %v", poolerr.ErrBadImage, err))
		return
	}

	task := types.NewTask("", types.Payload{Kind: types.PayloadBytes, Bytes: raw}, parsePriority(req.Priority), 0)
	task.TargetKeywords = req.Keywords
	task.Options = req.Options

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.pool.ProcessSync(ctx, task)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Status:         "success",
		Data:           result,
		ProcessingTime: time.Since(start).Seconds(),
	})
}

func parsePriority(p string) types.Priority {
	switch p {
	case "critical", "CRITICAL":
		return types.PriorityCritical
	case "high", "HIGH":
		return types.PriorityHigh
	case "low", "LOW":
		return types.PriorityLow
	default:
		return types.PriorityNormal
	}
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	s.writeOK(w, s.pool.Instances())
}

func (s *Server) handleAddInstance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	id, err := s.pool.AddInstance(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]string{"instance_id": id})
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	detail, ok := s.pool.InstanceByID(id)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: instance %s", poolerr.ErrNotFound, id))
		return
	}
	s.writeOK(w, detail)
}

func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.pool.RemoveInstance(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]string{"message": fmt.Sprintf("instance %s removed", id)})
}

func (s *Server) handleInstanceLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	detail, ok := s.pool.InstanceByID(id)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: instance %s", poolerr.ErrNotFound, id))
		return
	}
	s.writeOK(w, detail.Logs)
}

func (s *Server) handleInstanceStart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	if err := s.pool.StartInstance(ctx, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]string{"message": fmt.Sprintf("instance %s started", id)})
}

func (s *Server) handleInstanceStop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.pool.StopInstance(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]string{"message": fmt.Sprintf("instance %s stopped", id)})
}

func (s *Server) handleInstanceRestart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	if err := s.pool.RestartInstance(ctx, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]string{"message": fmt.Sprintf("instance %s restarted", id)})
}
