// Package server exposes the simulation engine and XP economy as a JSON
// HTTP API. Identity is supplied by the upstream auth layer via the
// X-User-ID header.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/blueteamacademy/sim-server-go/internal/config"
	"github.com/blueteamacademy/sim-server-go/internal/observability"
	"github.com/blueteamacademy/sim-server-go/internal/simulation"
	"github.com/blueteamacademy/sim-server-go/internal/xp"
	"go.uber.org/zap"
)

// Server is the HTTP front end of the simulation service.
type Server struct {
	controller *simulation.Controller
	economy    *xp.Manager
	metrics    *observability.Collector
	logger     *zap.Logger
	cfg        config.HTTPConfig

	httpServer *http.Server
}

// New creates the HTTP server. metrics may be nil.
func New(cfg config.HTTPConfig, controller *simulation.Controller, economy *xp.Manager, metrics *observability.Collector, logger *zap.Logger) *Server {
	s := &Server{
		controller: controller,
		economy:    economy,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Routes builds the API handler with the full middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/game/game-state", s.handleGameState)
	api.HandleFunc("POST /api/game/start-game", s.handleStartGame)
	api.HandleFunc("POST /api/game/stop-game", s.handleStopGame)
	api.HandleFunc("POST /api/game/reset-game", s.handleResetGame)
	api.HandleFunc("POST /api/game/exit-game", s.handleExitGame)
	api.HandleFunc("POST /api/game/player-action", s.handlePlayerAction)
	api.HandleFunc("POST /api/game/ai-action", s.handleAIAction)
	api.HandleFunc("GET /api/game/game-results", s.handleGameResults)
	api.HandleFunc("GET /api/game/xp-status", s.handleXPStatus)
	api.HandleFunc("GET /api/game/xp-ledger", s.handleXPLedger)
	api.HandleFunc("POST /api/game/xp-recalc", s.handleXPRecalc)
	api.HandleFunc("POST /api/game/complete-level", s.handleCompleteLevel)

	mux.Handle("/api/game/", Chain(api,
		IdentityMiddleware(),
		RateLimitMiddleware(s.cfg.RateLimit, s.cfg.RateBurst),
	))

	return Chain(mux,
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		MetricsMiddleware(s.metrics),
	)
}

// Start begins serving; it blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.cfg.Address))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
