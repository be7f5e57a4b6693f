// Package api exposes batch control and single-client enrichment over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/batch"
	"github.com/sells-group/market-intel/internal/enrich"
)

// Scheduler is the batch control surface used by the handlers.
type Scheduler interface {
	Start(ctx context.Context, opts batch.Options) (batch.JobSnapshot, error)
	Pause() error
	Resume(ctx context.Context) (batch.JobSnapshot, error)
	Cancel() error
	Status() batch.JobSnapshot
	ResetBreaker()
}

// Server holds the handler dependencies.
type Server struct {
	// jobCtx outlives requests; batch jobs started over HTTP run under it.
	jobCtx    context.Context
	scheduler Scheduler
	enricher  enrich.Enricher
	defaults  batch.Options
	origins   []string
}

// New creates a Server. Jobs started through the API stop when jobCtx is done.
func New(jobCtx context.Context, scheduler Scheduler, enricher enrich.Enricher, defaults batch.Options, origins []string) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		jobCtx:    jobCtx,
		scheduler: scheduler,
		enricher:  enricher,
		defaults:  defaults,
		origins:   origins,
	}
}

// Routes returns the router with all endpoints mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/batch", func(r chi.Router) {
			r.Post("/", s.startBatch)
			r.Get("/", s.batchStatus)
			r.Post("/pause", s.pauseBatch)
			r.Post("/resume", s.resumeBatch)
			r.Post("/cancel", s.cancelBatch)
		})
		r.Post("/breaker/reset", s.resetBreaker)
		r.Post("/projects/{projectID}/clients/{clientID}/enrich", s.enrichClient)
	})
	return r
}

const requestIDHeader = "X-Request-ID"

// requestID tags every request with an id and logs its outcome.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		zap.L().Debug("api: request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
