// Package http exposes the service's HTTP surface: health, readiness,
// metrics, the grouped event view, and the alert banner state.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-alert-service/internal/alert"
	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ViewSource provides the current display projection.
type ViewSource interface {
	CurrentView() domain.GroupedView
}

// AlertSource exposes the banner slot for display and manual dismissal.
type AlertSource interface {
	Active() *alert.Active
	Dismiss()
}

// LocationSink receives user position updates pushed by the geolocation
// collaborator. nil clears the position.
type LocationSink interface {
	Set(loc *domain.Coordinate)
}

// HistorySource queries archived events. May be nil when archiving is
// disabled.
type HistorySource interface {
	EventsSince(ctx context.Context, since time.Time) ([]domain.Event, error)
}

// Server exposes health, readiness, metrics, and display endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with health, metrics, and v1 display
// routes.
func NewServer(addr string, ready ReadinessChecker, views ViewSource, alerts AlertSource, location LocationSink, history HistorySource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/events", handleEvents(views))
	mux.HandleFunc("GET /v1/alert", handleAlert(alerts))
	mux.HandleFunc("POST /v1/alert/dismiss", handleDismiss(alerts))
	mux.HandleFunc("PUT /v1/location", s.handleLocation(location))
	mux.HandleFunc("GET /v1/history", s.handleHistory(history))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleEvents(views ViewSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, views.CurrentView())
	}
}

type alertResponse struct {
	Active bool          `json:"active"`
	Alert  *alert.Active `json:"alert,omitempty"`
}

func handleAlert(alerts AlertSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		active := alerts.Active()
		writeJSON(w, http.StatusOK, alertResponse{Active: active != nil, Alert: active})
	}
}

func handleDismiss(alerts AlertSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		alerts.Dismiss()
		writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
	}
}

// handleLocation accepts {"lat": ..., "lon": ...} or null to clear.
func (s *Server) handleLocation(location LocationSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var loc *domain.Coordinate
		if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid location payload"})
			return
		}
		location.Set(loc)
		s.logger.Debug("user location updated", "known", loc != nil)
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

type historyResponse struct {
	Since  time.Time      `json:"since"`
	Events []domain.Event `json:"events"`
}

// handleHistory serves archived events newer than ?since= (RFC3339, default
// seven days back).
func (s *Server) handleHistory(history HistorySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "event archive is not enabled"})
			return
		}

		since := time.Now().UTC().Add(-7 * 24 * time.Hour)
		if raw := r.URL.Query().Get("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})
				return
			}
			since = parsed
		}

		events, err := history.EventsSince(r.Context(), since)
		if err != nil {
			s.logger.Error("history query failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history query failed"})
			return
		}
		if events == nil {
			events = []domain.Event{}
		}
		writeJSON(w, http.StatusOK, historyResponse{Since: since, Events: events})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
