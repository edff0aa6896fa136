// Package api serves the worker's operator endpoints: health and a
// JSON counters snapshot. It is internal-only and carries no auth.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/replyloop/actions-worker/internal/shared/metrics"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server exposes the operator endpoints.
type Server struct {
	r        *chi.Mux
	db       HealthChecker
	counters *metrics.Counters
	started  time.Time
	logger   *slog.Logger
}

// NewServer builds the chi router for the operator endpoints.
func NewServer(db HealthChecker, counters *metrics.Counters, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	s := &Server{
		r:        r,
		db:       db,
		counters: counters,
		started:  time.Now().UTC(),
		logger:   logger.With("component", "ops-server"),
	}

	r.Get("/health", s.health)
	r.Get("/metrics", s.metrics)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Health(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type metricsResponse struct {
	Counters      metrics.Snapshot `json:"counters"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, metricsResponse{
		Counters:      s.counters.Snapshot(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
