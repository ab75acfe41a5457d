package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	_ "github.com/TheLucianoBraga/zapgestor/internal/adapter/evolution"
	zghttp "github.com/TheLucianoBraga/zapgestor/internal/adapter/http"
	_ "github.com/TheLucianoBraga/zapgestor/internal/adapter/waha"

	"github.com/TheLucianoBraga/zapgestor/internal/adapter/fanout"
	zgnats "github.com/TheLucianoBraga/zapgestor/internal/adapter/nats"
	"github.com/TheLucianoBraga/zapgestor/internal/adapter/postgres"
	"github.com/TheLucianoBraga/zapgestor/internal/adapter/ristretto"
	"github.com/TheLucianoBraga/zapgestor/internal/adapter/ws"
	"github.com/TheLucianoBraga/zapgestor/internal/config"
	"github.com/TheLucianoBraga/zapgestor/internal/logger"
	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
	"github.com/TheLucianoBraga/zapgestor/internal/port/broadcast"
	"github.com/TheLucianoBraga/zapgestor/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"poll_interval", cfg.Poller.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	cache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	hub := ws.NewHub()

	// NATS is optional; without it events only reach WebSocket clients.
	var events *zgnats.Events
	if cfg.NATS.URL != "" {
		events, err = zgnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, continuing without it", "error", err)
		} else {
			defer func() { _ = events.Close() }()
		}
	}

	backends := []broadcast.Broadcaster{hub}
	if events != nil {
		backends = append(backends, events)
	}
	broadcaster := fanout.New(backends...)

	// --- Services ---

	store := postgres.NewStore(pool)
	settingsSvc := service.NewSettingsService(store, cache, cfg.Cache.TTL, cfg.Secrets.EncryptionSecret)
	connSvc := service.NewConnectionService(settingsSvc, hub, broadcaster, cfg)
	connSvc.Start(ctx)
	queueSvc := service.NewQueueService(store, broadcaster)

	// --- HTTP ---

	handlers := zghttp.NewHandlers(settingsSvc, connSvc, queueSvc, hub)

	r := chi.NewRouter()
	r.Use(zghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(zghttp.SecurityHeaders)
	r.Use(zghttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	zghttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
