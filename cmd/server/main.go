/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the evaluation engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, optional YAML, EVAL_ env vars)
  2. Apply command-line overrides
  3. Initialize logger and metrics
  4. Open the store (SQLite, or in-memory when db path is empty)
  5. Build the engine, handler and router
  6. Start the overdue scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (default: $EVAL_CONFIG)
  -addr    HTTP listen address (overrides addr)
  -db      SQLite database path (overrides db_path)
           Use ":memory:" for an in-memory SQLite database,
           "" for the plain in-memory store

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the overdue scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/evaluation.db"

  # Run with in-memory database on a different port
  EVAL_ADDR=:3000 ./server -db=""

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - api/scheduler.go: Overdue scheduler
*/
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
	"time"

	"github.com/warp/evaluation-engine/api"
	"github.com/warp/evaluation-engine/config"
	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/logger"
	"github.com/warp/evaluation-engine/metrics"
	"github.com/warp/evaluation-engine/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", os.Getenv(config.EnvFile), "YAML config file")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadFile(ctx, *configPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DBPath = *dbPath
		}
	})

	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Named("server")

	m := metrics.NewManager()

	// Initialize store
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		engine.WithLogger(logger.Named("engine")),
		engine.WithMetrics(m),
	)
	eng := engine.New(st, opts...)

	handler := api.NewHandler(eng, st, logger.Named("api"))
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        m,
	})

	scheduler := api.NewOverdueScheduler(eng, logger.Named("scheduler"))
	scheduler.CheckInterval = cfg.OverdueCheckInterval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting",
			logger.String("addr", cfg.Addr),
			logger.String("db_path", cfg.DBPath),
			logger.String("incentive_curve", cfg.IncentiveCurve),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info(ctx, "shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped")
	return nil
}
