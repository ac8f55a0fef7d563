// Package http exposes the read-only assessment API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
	"github.com/tradeforge/signalguard/internal/engine"
	"github.com/tradeforge/signalguard/internal/metrics"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns local-only defaults. HTTP_PORT overrides the
// port.
func DefaultServerConfig() ServerConfig {
	port := 8080
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server serves health, metrics, and on-demand assessments. It never mutates
// engine state beyond triggering cycles.
type Server struct {
	cfg     ServerConfig
	engine  *engine.Engine
	metrics *metrics.Metrics
	httpSrv *http.Server
	started time.Time
}

// NewServer wires the routes. m may be nil, which omits the /metrics route.
func NewServer(cfg ServerConfig, eng *engine.Engine, m *metrics.Metrics) *Server {
	s := &Server{cfg: cfg, engine: eng, metrics: m, started: time.Now()}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/assessment/{symbol}", s.handleAssessment).Methods(http.MethodGet)
	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Start serves requests until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("HTTP server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

// handleAssessment runs (or joins) a validation cycle. Status mirrors the
// verdict: guardrail suspensions are 409, HALT recommendations 503,
// everything else 200 with the full report.
func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	report, err := s.engine.RunCycle(r.Context(), symbol, force)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("Assessment failed")
		writeError(w, http.StatusBadGateway, "no data source could serve this symbol")
		return
	}

	status := http.StatusOK
	switch {
	case report.Guardrail.Action == domain.ActionSuspend:
		status = http.StatusConflict
	case report.Quality.Recommendation == domain.RecommendHalt:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
