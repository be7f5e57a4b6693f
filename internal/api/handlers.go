package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/batch"
	"github.com/sells-group/market-intel/internal/enrich"
	"github.com/sells-group/market-intel/internal/resilience"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// startRequest is the body of POST /v1/batch. Zero fields keep the
// server defaults.
type startRequest struct {
	ProjectID   int64  `json:"project_id"`
	SurveyID    *int64 `json:"survey_id,omitempty"`
	BatchSize   int    `json:"batch_size,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
	MaxRetries  *int   `json:"max_retries,omitempty"`
	BaseDelayMs int    `json:"base_delay_ms,omitempty"`
	MaxDelayMs  int    `json:"max_delay_ms,omitempty"`
}

func (req startRequest) options(defaults batch.Options) batch.Options {
	opts := defaults
	opts.Selector.ProjectID = req.ProjectID
	opts.Selector.SurveyID = req.SurveyID
	if req.BatchSize > 0 {
		opts.BatchSize = req.BatchSize
	}
	if req.Concurrency > 0 {
		opts.Concurrency = req.Concurrency
	}
	if req.MaxRetries != nil {
		opts.MaxRetries = *req.MaxRetries
	}
	if req.BaseDelayMs > 0 {
		opts.BaseDelay = time.Duration(req.BaseDelayMs) * time.Millisecond
	}
	if req.MaxDelayMs > 0 {
		opts.MaxDelay = time.Duration(req.MaxDelayMs) * time.Millisecond
	}
	return opts
}

func (s *Server) startBatch(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID <= 0 {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if req.MaxRetries != nil && *req.MaxRetries < 0 {
		writeError(w, http.StatusBadRequest, "max_retries must be >= 0")
		return
	}

	snap, err := s.scheduler.Start(s.jobCtx, req.options(s.defaults))
	switch {
	case errors.Is(err, batch.ErrJobRunning):
		writeError(w, http.StatusConflict, "a batch job is already running")
	case err != nil:
		zap.L().Error("api: start batch", zap.Int64("project_id", req.ProjectID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start batch job")
	default:
		writeJSON(w, http.StatusAccepted, snap)
	}
}

func (s *Server) batchStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) pauseBatch(w http.ResponseWriter, _ *http.Request) {
	if err := s.scheduler.Pause(); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) resumeBatch(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.scheduler.Resume(s.jobCtx)
	if err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) cancelBatch(w http.ResponseWriter, _ *http.Request) {
	if err := s.scheduler.Cancel(); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) resetBreaker(w http.ResponseWriter, _ *http.Request) {
	s.scheduler.ResetBreaker()
	writeJSON(w, http.StatusOK, s.scheduler.Status())
}

func writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, batch.ErrNoJob):
		writeError(w, http.StatusNotFound, "no batch job")
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeError(w, http.StatusConflict, "circuit breaker is open; reset it or wait for the cooldown")
	case errors.Is(err, batch.ErrNotRunning), errors.Is(err, batch.ErrNotPaused):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zap.L().Error("api: batch control", zap.Error(err))
		writeError(w, http.StatusConflict, "batch job cannot change state")
	}
}

func (s *Server) enrichClient(w http.ResponseWriter, r *http.Request) {
	projectID, err1 := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	clientID, err2 := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
	if err1 != nil || err2 != nil || projectID <= 0 || clientID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid project or client id")
		return
	}

	res := s.enricher.Enrich(r.Context(), clientID, projectID)
	switch {
	case res.Success:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(res.Err, enrich.ErrClientNotFound):
		writeJSON(w, http.StatusNotFound, res)
	default:
		writeJSON(w, http.StatusInternalServerError, res)
	}
}
