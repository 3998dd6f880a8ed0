package app

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

	"docarchive/internal/archive"
	"docarchive/internal/config"
	"docarchive/internal/event"
	"docarchive/internal/handler"
	"docarchive/internal/middleware"
	"docarchive/internal/model"
	"docarchive/internal/router"
	"docarchive/internal/service"
)

const shutdownTimeout = 10 * time.Second

// configFileActor is recorded as the actor of configuration changes that
// come from ARCHIVE_CONFIG_FILE.
var configFileActor = model.Actor{UserID: "config-file"}

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cleanup := []func(){cancel}
	fail := func(err error) (*App, error) {
		runCleanup(cleanup)
		return nil, err
	}

	backend, closeBackend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	cleanup = append(cleanup, closeBackend)

	settings, err := LoadSettings(cfg)
	if err != nil {
		return fail(err)
	}

	bus := event.NewBus()
	engine := archive.NewEngine(backend, settings)
	collectionService := service.NewCollectionService(engine, bus)

	if cfg.ArchiveConfigFile != "" {
		err := config.WatchArchiveFile(ctx, cfg.ArchiveConfigFile, settings, func(applied archive.Config) {
			collectionService.Configured(applied, configFileActor)
		})
		if err != nil {
			return fail(fmt.Errorf("failed to watch archive config: %w", err))
		}
	}

	authMiddleware, err := newAuthMiddleware(cfg)
	if err != nil {
		return fail(err)
	}

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Collection: handler.NewCollectionHandler(collectionService),
		Config:     handler.NewConfigHandler(collectionService),
		Events:     handler.NewEventsHandler(bus, handler.EventsHeartbeat),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	current := settings.Get()
	slog.Info("archive configured",
		"backend", cfg.StoreBackend,
		"archive", current.Name,
		"override_remove", current.InterceptDelete,
		"exclude", current.Exclude,
		"auth", authMiddleware.Enabled(),
	)

	return &App{server: server, cleanupFuncs: cleanup}, nil
}

// LoadSettings builds the archive settings from the environment, then merges
// ARCHIVE_CONFIG_FILE over them when it is set.
func LoadSettings(cfg *config.Config) (*archive.Settings, error) {
	settings := archive.NewSettings(cfg.Archive())
	if cfg.ArchiveConfigFile == "" {
		return settings, nil
	}
	if _, err := config.ApplyArchiveFile(cfg.ArchiveConfigFile, settings); err != nil {
		return nil, fmt.Errorf("failed to load archive config: %w", err)
	}
	return settings, nil
}

func newAuthMiddleware(cfg *config.Config) (*middleware.AuthMiddleware, error) {
	if !cfg.AuthEnabled() {
		slog.Warn("JWT_SECRET not set; API authentication disabled")
		return middleware.NewAuthMiddleware(nil), nil
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTAccessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	return middleware.NewAuthMiddleware(tokens), nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		runCleanup(a.cleanupFuncs)
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		slog.Info("shutdown requested", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Drain requests before the store goes away.
	shutdownErr := a.server.Shutdown(ctx)
	runCleanup(a.cleanupFuncs)
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// runCleanup releases resources in reverse order of acquisition.
func runCleanup(funcs []func()) {
	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}
