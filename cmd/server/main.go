package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"subview/internal/catalog"
	"subview/internal/config"
	"subview/internal/extraction"
	"subview/internal/geometry"
	"subview/internal/handler"
	"subview/internal/logging"
	"subview/internal/render"
	"subview/internal/router"
	"subview/internal/session"
	"subview/internal/source"
	"subview/internal/store"
	"subview/internal/viewer"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()
	if cfg.Catalog.Watch {
		if err := cat.Watch(); err != nil {
			return fmt.Errorf("failed to watch catalog: %w", err)
		}
	}

	localStore, err := store.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer func() { _ = localStore.Close() }()

	// Wire the core components
	extractionClient := extraction.NewClient(cfg.Extraction, logger)
	docSource := source.New(nil)
	normalizer := geometry.NewNormalizer(logger)
	factory := viewer.NewFactory(docSource, render.New(), normalizer, cfg.Viewer, logger)
	mgr := session.NewManager(cat, extractionClient, localStore, factory, *cfg, logger)
	defer mgr.Close()

	// Wire the handlers
	sessionH := handler.NewSessionHandler(mgr, logger)
	viewerH := handler.NewViewerHandler(mgr, logger)
	fieldH := handler.NewFieldHandler(mgr, cat, logger)
	catalogH := handler.NewCatalogHandler(cat, docSource, logger)
	healthH := handler.NewHealthHandler(cat, localStore)

	r := router.Setup(*cfg, logger, sessionH, viewerH, fieldH, catalogH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
