// Package main is the entry point for the dispatch API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/dispatch/internal/config"
	"github.com/fleetdesk/dispatch/internal/engine"
	"github.com/fleetdesk/dispatch/internal/events"
	"github.com/fleetdesk/dispatch/internal/handler"
	"github.com/fleetdesk/dispatch/internal/metrics"
	"github.com/fleetdesk/dispatch/internal/middleware"
	"github.com/fleetdesk/dispatch/internal/repo"
	"github.com/fleetdesk/dispatch/internal/service"
)

// maxBodySize caps incoming request bodies at 1 MiB. Action and schedule
// bodies are tiny; anything bigger is abuse.
const maxBodySize = 1 << 20

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Metrics ----------------------------------------------------------
	collector := metrics.NewCollector()

	// --- Events -----------------------------------------------------------
	// The NATS publisher is optional: without NATS_URL the API runs with
	// event publishing disabled.
	var sink service.EventSink
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL, logger, collector)
		if err != nil {
			slog.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		sink = pub
		slog.Info("nats connection established")
	} else {
		slog.Info("NATS_URL not set; event publishing disabled")
	}

	// --- Services ---------------------------------------------------------
	trips := repo.NewTripRepo(pool)
	entries := repo.NewScheduleEntryRepo(pool)

	execution := service.NewExecutionService(trips, sink, collector, logger)
	tripEngine := engine.New(execution, logger, collector)

	srv := handler.NewServer(
		service.NewTripService(trips),
		tripEngine,
		service.NewScheduleService(entries, collector),
		service.NewExportService(trips),
		service.NewTripSheetService(trips),
	)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID -> RealIP -> Logger -> Recoverer.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodySize))

	srv.Routes(r)
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
