// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
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

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/auth"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/sse"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("remote_driver", cfg.Remote.Selected()),
		slog.String("blob_driver", cfg.Blob.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	authSvc, err := auth.New(auth.Options{
		Mode:         auth.Mode(cfg.Auth.Mode),
		PasswordHash: cfg.Auth.PasswordHash,
		Secret:       cfg.Auth.JWTSecret,
		TTL:          cfg.Auth.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(500 * time.Millisecond)
	defer broker.Close()

	// The notifier needs the searcher, which needs the repository, so the
	// save hook resolves it late. No save happens before it is set.
	var notifier *changeNotifier
	st, err := buildStack(ctx, cfg, logger, content.WithSaveHook(func(ctx context.Context, c *catalog.Catalog) {
		notifier.saved(ctx, c)
	}))
	if err != nil {
		return err
	}
	defer st.close()
	notifier = newChangeNotifier(st.searcher, broker, logger)

	// Initial load seeds an empty store and builds the index.
	if sum, err := st.searcher.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		notifier.prime(sum)
	}

	// Build API handlers and router.
	h := api.NewHandler(st.repo, st.coord, api.WithSearcher(st.searcher), api.WithLogger(logger))
	uploads := api.NewUploadHandler(h, st.uploads)
	apiRouter := api.NewRouter(api.Routes{
		Handler: h,
		Sessions: api.NewSessionHandler(authSvc,
			api.WithSecureCookie(cfg.Auth.SecureCookie),
			api.WithSessionLogger(logger)),
		Uploads: uploads,
		Auth:    authSvc,
		Events:  broker,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, "ok", nil)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		pingCtx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := st.ready(pingCtx); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			writeHealth(w, http.StatusServiceUnavailable, "unavailable", st.repo.Backends())
			return
		}
		writeHealth(w, http.StatusOK, "ok", st.repo.Backends())
	})

	// Locally stored uploads.
	r.Get("/uploads/{filename}", uploads.ServeFile)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start document watcher with SSE callback.
	if cfg.Data.Watch {
		g.Go(func() error {
			if err := index.Watch(gCtx, st.doc.Path(), logger, notifier.changed); err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams only end when the broker closes.
		broker.Close()

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

// RunMCP serves the read-only MCP tools on stdin/stdout. Logs go to stderr
// because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if _, err := st.searcher.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(st.repo, st.searcher, app.version).ServeStdio()
}

type healthBody struct {
	Status   string   `json:"status"`
	Backends []string `json:"backends,omitempty"`
}

func writeHealth(w http.ResponseWriter, status int, state string, backends []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthBody{Status: state, Backends: backends})
}
