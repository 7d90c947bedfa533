// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ehwaz/internal/api"
	"github.com/starford/ehwaz/internal/assetsvc"
	"github.com/starford/ehwaz/internal/events"
	"github.com/starford/ehwaz/internal/index"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/storage"
	"github.com/starford/ehwaz/internal/workflow"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("input_path", cfg.Media.InputPath),
		slog.String("output_path", cfg.Media.OutputPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure media roots exist.
	for _, dir := range []string{cfg.Media.InputPath, cfg.Media.OutputPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create media root %s: %w", dir, err)
		}
	}

	store, err := storage.NewFS(cfg.Media.InputPath, cfg.Media.OutputPath, cfg.Media.CustomRoots)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Initial sync of both managed roots.
	for _, scope := range []models.Scope{models.ScopeInput, models.ScopeOutput} {
		if err := index.Sync(db, store, scope, logger); err != nil {
			logger.Warn("initial sync failed",
				slog.String("scope", string(scope)), slog.String("error", err.Error()))
		}
	}

	broker := events.NewBroker()
	defer broker.Close()

	wfCache := workflow.NewCache(cfg.Workflow.CacheTTL(), cfg.Workflow.CacheCapacity)
	svc := assetsvc.New(store, db, broker, cfg.Archive.Dir, wfCache, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the managed roots and mirror changes into the index and the
	// event log.
	g.Go(func() error {
		roots := map[models.Scope]string{
			models.ScopeInput:  cfg.Media.InputPath,
			models.ScopeOutput: cfg.Media.OutputPath,
		}
		return index.Watch(gCtx, db, store, roots, logger, func(kind string, scope models.Scope, rel string) {
			eventType := events.TypeAssetIndexed
			if kind == "removed" {
				eventType = events.TypeAssetRemoved
			}
			broker.Publish(events.Event{Type: eventType, Data: map[string]any{
				"type": scope,
				"path": rel,
			}})
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
