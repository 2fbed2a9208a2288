/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the crew roster server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (.env, environment, optional YAML file)
  3. Build the zap logger
  4. Initialize SQLite store
  5. Create API handler and router
  6. Start the consistency auditor
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (optional)
  -addr    HTTP listen address, overrides ROSTER_ADDR
  -db      SQLite database path, overrides ROSTER_DB_PATH
           Use ":memory:" for in-memory database
  -demo    Seed the demo fleet on an empty database

ENVIRONMENT:
  ROSTER_ADDR, ROSTER_DB_PATH, ROSTER_LOG_LEVEL,
  ROSTER_ALLOWED_ORIGINS, ROSTER_LOAD_DEMO, ROSTER_AUDIT_INTERVAL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings and precedence
  - store/sqlite/sqlite.go: Database implementation
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

	"go.uber.org/zap"

	"github.com/warp/crew-roster/api"
	"github.com/warp/crew-roster/config"
	"github.com/warp/crew-roster/logging"
	"github.com/warp/crew-roster/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	demo := flag.Bool("demo", false, "Load demo fleet into an empty database")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *demo {
		cfg.LoadDemo = true
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)

	if cfg.LoadDemo {
		loaded, err := api.LoadDemoFleet(context.Background(), store, time.Now())
		if err != nil {
			logger.Warn("demo fleet not loaded", zap.Error(err))
		} else {
			logger.Info("demo fleet", zap.Bool("loaded", loaded))
		}
	}

	auditor := api.NewAuditor(store, logger.Named("audit"), time.Duration(cfg.AuditInterval))
	handler.Auditor = auditor
	auditor.Start()
	defer auditor.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("db", cfg.DatabasePath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
