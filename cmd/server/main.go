/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fee ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Configure the slog root logger
  3. Initialize SQLite store (migrations run on open)
  4. Wire domain services and API handler
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags take precedence over environment variables.
  -port / PORT                 HTTP server port (default: 8080)
  -db   / DATABASE_PATH        SQLite database path (default: fees.db)
                               Use ":memory:" for in-memory database
  -log-level / LOG_LEVEL       debug|info|warn|error (default: info)
  -lock-timeout-ms / LOCK_TIMEOUT_MS
                               Per-profile write lock wait (default: 2000)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/fees.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/fee-ledger/api"
	"github.com/warp/fee-ledger/fees"
	"github.com/warp/fee-ledger/store/sqlite"
)

func main() {
	// Best effort; the file is optional outside local dev.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "fees.db"), "SQLite database path")
	logLevel := flag.String("log-level", envStr("LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	lockTimeoutMS := flag.Int("lock-timeout-ms", envInt("LOCK_TIMEOUT_MS", 2000), "per-profile write lock wait in milliseconds")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(log)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Error("failed to initialize database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	locks := fees.NewProfileLocks(time.Duration(*lockTimeoutMS) * time.Millisecond)

	structures := fees.NewStructures(store, log)
	profiles := fees.NewProfiles(store, locks, log)
	ledger := fees.NewPaymentLedger(store, locks, log)
	reconciler := fees.NewReconciler(store)

	handler := api.NewHandler(structures, profiles, ledger, reconciler, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", server.Addr, "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
