package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/wind-yield-etl/internal/adapter/store"
	"github.com/couchcryptid/wind-yield-etl/internal/domain"
	"github.com/couchcryptid/wind-yield-etl/internal/fleet"
)

const (
	defaultReportLimit = 24
	maxReportLimit     = 500
)

// ReportLister returns stored reports for a turbine, newest first.
type ReportLister interface {
	ListByTurbine(ctx context.Context, turbineID string, limit int) ([]domain.TurbineReport, error)
}

// Server exposes health, readiness, metrics, and fleet HTTP endpoints.
type Server struct {
	httpServer *http.Server
	fleet      *fleet.Fleet
	reports    ReportLister
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /turbines routes. reports may be nil when no store is configured.
func NewServer(addr string, ready sharedobs.ReadinessChecker, fl *fleet.Fleet, reports ReportLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		fleet:   fl,
		reports: reports,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /turbines", s.handleTurbines)
	mux.HandleFunc("GET /turbines/{id}", s.handleTurbine)
	mux.HandleFunc("GET /turbines/{id}/reports", s.handleReports)

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

// turbineView is a turbine with its derived geometry.
type turbineView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	domain.WindTurbineSpec
	SweptArea   float64 `json:"swept_area_m2"`
	MinTipSpeed float64 `json:"min_tip_speed_ms"`
	MaxTipSpeed float64 `json:"max_tip_speed_ms"`
}

func newTurbineView(t fleet.Turbine) turbineView {
	return turbineView{
		ID:              t.ID,
		Name:            t.Name,
		WindTurbineSpec: t.Spec,
		SweptArea:       t.Spec.Area(),
		MinTipSpeed:     t.Spec.MinTipSpeed(),
		MaxTipSpeed:     t.Spec.MaxTipSpeed(),
	}
}

func (s *Server) handleTurbines(w http.ResponseWriter, _ *http.Request) {
	views := make([]turbineView, len(s.fleet.Turbines))
	for i, t := range s.fleet.Turbines {
		views[i] = newTurbineView(t)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleTurbine(w http.ResponseWriter, r *http.Request) {
	t, ok := s.fleet.Lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown turbine")
		return
	}
	writeJSON(w, http.StatusOK, newTurbineView(t))
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.fleet.Lookup(id); !ok {
		writeError(w, http.StatusNotFound, "unknown turbine")
		return
	}
	if s.reports == nil {
		writeError(w, http.StatusNotFound, "report store disabled")
		return
	}

	limit := defaultReportLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxReportLimit {
			writeError(w, http.StatusBadRequest, "limit must be an integer in [1, 500]")
			return
		}
		limit = n
	}

	reports, err := s.reports.ListByTurbine(r.Context(), id, limit)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusOK, []domain.TurbineReport{})
	case err != nil:
		s.logger.Error("list reports failed", "turbine_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "list reports failed")
	default:
		writeJSON(w, http.StatusOK, reports)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
