package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordReader serves the dashboard read query over the logs table.
type RecordReader interface {
	Recent(ctx context.Context, since time.Time, limit int) ([]domain.LogRecord, error)
}

// Server exposes health, readiness, metrics, and recent readings over HTTP.
type Server struct {
	httpServer *http.Server
	records    RecordReader
	location   *time.Location
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /api/readings routes. loc is the zone readings are recorded in; a since
// bound is converted into it because recorded_at is stored as wall-clock
// time without an offset. A nil loc means UTC.
func NewServer(addr string, ready sharedobs.ReadinessChecker, records RecordReader, loc *time.Location, logger *slog.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		records:  records,
		location: loc,
		logger:   logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/api/readings", s.handleReadings)

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

// handleReadings serves GET /api/readings?since=RFC3339&limit=N, newest first.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var since time.Time
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be an RFC3339 timestamp"})
			return
		}
		since = t.In(s.location)
	}

	var limit int
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	recs, err := s.records.Recent(r.Context(), since, limit)
	if err != nil {
		s.logger.Error("query recent readings", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	if recs == nil {
		recs = []domain.LogRecord{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"readings": recs, "count": len(recs)})
}
