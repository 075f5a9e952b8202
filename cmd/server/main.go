package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/blueteamacademy/sim-server-go/internal/config"
	"github.com/blueteamacademy/sim-server-go/internal/observability"
	"github.com/blueteamacademy/sim-server-go/internal/repository"
	"github.com/blueteamacademy/sim-server-go/internal/server"
	"github.com/blueteamacademy/sim-server-go/internal/simulation"
	"github.com/blueteamacademy/sim-server-go/internal/xp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting simulation server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)

	// Initialize metrics
	var collector *observability.Collector
	if cfg.Metrics.Enabled {
		collector, err = observability.NewCollector(nil)
		if err != nil {
			logger.Fatal("failed to register metrics", zap.Error(err))
		}
		go func() {
			logger.Info("starting metrics server", zap.String("address", cfg.Metrics.Address))
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			if metricsErr := http.ListenAndServe(cfg.Metrics.Address, mux); metricsErr != nil {
				logger.Error("metrics server error", zap.Error(metricsErr))
			}
		}()
	}

	// Initialize repositories
	sessionRepo := repository.NewGameSessionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	userXPRepo := repository.NewUserXPRepository(db)

	// Initialize XP economy
	economy := xp.NewManager(ledgerRepo, userXPRepo, logger)
	logger.Info("xp economy initialized")

	// Initialize ephemeral state store and its janitor
	stateStore := simulation.NewMemoryStateStore(cfg.Simulation.StateTTL, cfg.Simulation.CleanupInterval, logger)
	go stateStore.CleanupExpired(ctx)
	logger.Info("state store initialized",
		zap.Duration("state_ttl", cfg.Simulation.StateTTL),
	)

	// Initialize simulation controller
	budgetSeconds := int(cfg.Simulation.SessionBudget.Seconds())
	controller := simulation.NewController(stateStore, sessionRepo, economy, collector, budgetSeconds, logger)
	logger.Info("simulation controller initialized",
		zap.Int("session_budget_seconds", budgetSeconds),
	)

	httpServer := server.New(cfg.Server.HTTP, controller, economy, collector, logger)

	go func() {
		if serveErr := httpServer.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	logger.Info("simulation server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("simulation server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
