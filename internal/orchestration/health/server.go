package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/storage"
	"github.com/deploykit/rollbackd/internal/orchestration/points"
	"github.com/deploykit/rollbackd/internal/orchestration/rollback"
)

// Server exposes the orchestrator operations and health endpoints over HTTP.
type Server struct {
	monitor    *Monitor
	points     *points.Store
	orch       *rollback.Orchestrator
	strategies *rollback.StrategyRegistry
	server     *http.Server
}

// NewServer creates the HTTP server on the given port.
func NewServer(
	monitor *Monitor,
	pointStore *points.Store,
	orch *rollback.Orchestrator,
	strategies *rollback.StrategyRegistry,
	port int,
) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor:    monitor,
		points:     pointStore,
		orch:       orch,
		strategies: strategies,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/recovery-points", s.handleCreatePoint)
	mux.HandleFunc("GET /api/recovery-points", s.handleListPoints)
	mux.HandleFunc("GET /api/recovery-points/{id}", s.handleGetPoint)
	mux.HandleFunc("DELETE /api/recovery-points/{id}", s.handleDeletePoint)

	mux.HandleFunc("POST /api/rollbacks", s.handleInitiate)
	mux.HandleFunc("GET /api/rollbacks", s.handleListRollbacks)
	mux.HandleFunc("GET /api/rollbacks/{id}", s.handleGetRollback)
	mux.HandleFunc("GET /api/rollbacks/{id}/logs", s.handleRollbackLogs)
	mux.HandleFunc("POST /api/rollbacks/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/rollbacks/{id}/reject", s.handleReject)
	mux.HandleFunc("POST /api/rollbacks/{id}/cancel", s.handleCancel)

	mux.HandleFunc("GET /api/strategies", s.handleListStrategies)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.Check(r.Context())
	code := http.StatusOK
	if report.Status == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": string(report.Status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Check(r.Context()))
}

type createPointRequest struct {
	Kind     domain.RecoveryPointKind `json:"kind"`
	Trigger  domain.RecoveryTrigger   `json:"trigger"`
	Metadata domain.PointMetadata     `json:"metadata"`
}

func (s *Server) handleCreatePoint(w http.ResponseWriter, r *http.Request) {
	var req createPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Kind == "" {
		req.Kind = domain.KindManual
	}
	if req.Trigger == "" {
		req.Trigger = domain.TriggerUserRequest
	}

	point, err := s.points.Create(r.Context(), req.Kind, req.Trigger, req.Metadata)
	if err != nil {
		var capErr *points.CaptureError
		if errors.As(err, &capErr) {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, point)
}

func (s *Server) handleListPoints(w http.ResponseWriter, r *http.Request) {
	list, err := s.points.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	point, err := s.points.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, point)
}

func (s *Server) handleDeletePoint(w http.ResponseWriter, r *http.Request) {
	if err := s.points.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type initiateRequest struct {
	RecoveryPointID string              `json:"recovery_point_id"`
	Strategy        domain.StrategyName `json:"strategy"`
	Force           bool                `json:"force"`
	RequestedBy     string              `json:"requested_by"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	exec, err := s.orch.InitiateRollback(r.Context(), req.RecoveryPointID, req.Strategy, rollback.Options{
		Force:       req.Force,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, exec)
}

func (s *Server) handleListRollbacks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.ListExecutions())
}

func (s *Server) handleGetRollback(w http.ResponseWriter, r *http.Request) {
	exec, err := s.orch.GetExecution(r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleRollbackLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.orch.GetLogs(r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type decisionRequest struct {
	Role    domain.ApprovalRole `json:"role"`
	UserID  string              `json:"user_id"`
	Comment string              `json:"comment"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	applied, err := s.orch.Approve(r.Context(), r.PathValue("id"), req.Role, req.UserID, req.Comment)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	applied, err := s.orch.Reject(r.Context(), r.PathValue("id"), req.Role, req.UserID, req.Comment)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Cancel(r.PathValue("id")); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	names := s.strategies.Names()
	out := make([]domain.Strategy, 0, len(names))
	for _, name := range names {
		strategy, err := s.strategies.Get(name)
		if err != nil {
			continue
		}
		out = append(out, strategy)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrRecoveryPointNotFound),
		errors.Is(err, storage.ErrExecutionNotFound),
		errors.Is(err, rollback.ErrStrategyNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, rollback.ErrUnknownRole):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, rollback.ErrRollbackInProgress),
		errors.Is(err, rollback.ErrNotCancellable):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
