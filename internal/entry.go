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

	"github.com/calloway/fixport/internal/api"
	"github.com/calloway/fixport/internal/apperr"
	"github.com/calloway/fixport/internal/catalog"
	"github.com/calloway/fixport/internal/docstore"
	"github.com/calloway/fixport/internal/draft"
	"github.com/calloway/fixport/internal/index"
	"github.com/calloway/fixport/internal/kvstore"
	"github.com/calloway/fixport/internal/mcpserver"
	"github.com/calloway/fixport/internal/models"
	"github.com/calloway/fixport/internal/overlay"
	"github.com/calloway/fixport/internal/publish"
	"github.com/calloway/fixport/internal/seed"
	"github.com/calloway/fixport/internal/snapshot"
	"github.com/calloway/fixport/internal/sse"
)

// Run starts the portal with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("index_path", cfg.Index.Path),
		slog.String("snapshot_path", cfg.Snapshot.Path),
		slog.String("store_backend", cfg.Publish.Store.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data directory exists.
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Profile storage for the draft and the local overlay.
	kv, err := kvstore.NewFS(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("init profile storage: %w", err)
	}
	drafts := draft.NewStore(kv, logger, time.Second)
	ov := overlay.NewStore(kv, logger)

	// Remote tier: the local mirror of the published store.
	snap := snapshot.NewLoader(cfg.Snapshot.Path, logger)
	if err := snap.Load(); err != nil {
		logger.Warn("initial snapshot load failed", slog.String("error", err.Error()))
	}

	resolver := catalog.NewResolver(ov.List, snap.Entries, seed.Entries)

	// Initialize SQLite search index from the merged catalog.
	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Rebuild(db, resolver.Catalog(), logger); err != nil {
		logger.Warn("initial index rebuild failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Overlay mutations refresh the index and notify SSE clients.
	ov.Subscribe(func(kind, slug string) {
		if err := index.Rebuild(db, resolver.Catalog(), logger); err != nil {
			logger.Warn("index rebuild failed", slog.String("error", err.Error()))
		}
		broker.PublishFixEvent(kind, slug)
	})

	// Shared document store and publish endpoint.
	store, err := buildDocStore(cfg)
	if err != nil {
		return fmt.Errorf("init document store: %w", err)
	}
	pubSvc := publish.NewService(store, logger)
	pubHandler := publish.NewHandler(pubSvc, publish.Config{
		Path:            cfg.Publish.Path,
		RequireIdentity: cfg.Publish.RequireIdentity,
		IdentityHeader:  cfg.Publish.IdentityHeader,
		AllowedUsers:    cfg.Publish.AllowedUsers,
		AllowedOrigins:  cfg.Publish.AllowedOrigins,
	}, logger)

	// Build API service and router.
	svc := api.NewService(resolver, drafts, ov, db)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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

	// Mount API routes under /api and the publish endpoint at its own path.
	r.Mount("/api", apiRouter)
	r.Mount(cfg.Publish.Path, pubHandler.Routes())

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the snapshot file so an out-of-band sync shows up live.
	g.Go(func() error {
		err := snap.Watch(gCtx, func() {
			if err := index.Rebuild(db, resolver.Catalog(), logger); err != nil {
				logger.Warn("index rebuild failed", slog.String("error", err.Error()))
			}
			broker.Publish(sse.Event{Type: "catalog.updated", Data: map[string]string{}})
		})
		if err != nil {
			logger.Warn("snapshot watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

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

		// Flush the pending draft and drop SSE clients.
		drafts.Close()
		broker.Close()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunSyncSnapshot pulls the shared document from the configured store and
// writes it to the local snapshot file. Intended for cron or manual use.
func RunSyncSnapshot(ctx context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	store, err := buildDocStore(cfg)
	if err != nil {
		return fmt.Errorf("init document store: %w", err)
	}

	doc, _, err := store.Read(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			logger.Info("store is empty, writing empty snapshot")
			doc = &models.StoreDocument{Version: models.StoreDocumentVersion}
		} else {
			return fmt.Errorf("read store: %w", err)
		}
	}

	if err := snapshot.Write(cfg.Snapshot.Path, doc); err != nil {
		return err
	}
	logger.Info("snapshot written",
		slog.String("path", cfg.Snapshot.Path),
		slog.Int("entries", len(doc.Entries)))
	return nil
}

// RunMCP starts the MCP server on stdio, sharing the portal's catalog and
// search index with LLM clients.
func RunMCP(_ context.Context, cfg *Config) error {
	// Log to stderr: stdout carries the MCP protocol.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	kv, err := kvstore.NewFS(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("init profile storage: %w", err)
	}
	ov := overlay.NewStore(kv, logger)

	snap := snapshot.NewLoader(cfg.Snapshot.Path, logger)
	if err := snap.Load(); err != nil {
		logger.Warn("snapshot load failed", slog.String("error", err.Error()))
	}

	resolver := catalog.NewResolver(ov.List, snap.Entries, seed.Entries)

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()
	if err := index.Rebuild(db, resolver.Catalog(), logger); err != nil {
		logger.Warn("index rebuild failed", slog.String("error", err.Error()))
	}

	store, err := buildDocStore(cfg)
	if err != nil {
		return fmt.Errorf("init document store: %w", err)
	}
	pubSvc := publish.NewService(store, logger)

	return mcpserver.New(resolver, db, pubSvc).ServeStdio()
}

// buildDocStore constructs the shared document store named by the config.
func buildDocStore(cfg *Config) (docstore.Store, error) {
	switch cfg.Publish.Store.Backend {
	case StoreBackendGit:
		return docstore.NewGit(docstore.GitConfig{
			Dir:    cfg.Publish.Store.Git.Dir,
			File:   cfg.Publish.Store.Git.File,
			Branch: cfg.Publish.Store.Git.Branch,
		})
	case StoreBackendGitHub:
		return docstore.NewGitHub(docstore.GitHubConfig{
			Owner:   cfg.Publish.Store.GitHub.Owner,
			Repo:    cfg.Publish.Store.GitHub.Repo,
			Path:    cfg.Publish.Store.GitHub.Path,
			Branch:  cfg.Publish.Store.GitHub.Branch,
			Token:   cfg.Publish.Store.GitHub.Token,
			BaseURL: cfg.Publish.Store.GitHub.BaseURL,
		}), nil
	case StoreBackendMemory, "":
		return docstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Publish.Store.Backend)
	}
}
