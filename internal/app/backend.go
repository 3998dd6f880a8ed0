package app

import (
	"context"
	"fmt"
	"log/slog"

	"docarchive/internal/config"
	"docarchive/internal/database"
	"docarchive/internal/repository"
	"docarchive/internal/store"
)

// OpenBackend connects the document store selected by STORE_BACKEND. The
// returned close function releases everything the backend holds.
func OpenBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, database.Options{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		slog.Info("database ready")
		return repository.NewPostgresBackend(db.Pool), db.Close, nil

	case config.BackendSQLite:
		backend, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		slog.Info("sqlite store ready", "path", backend.Path())
		return backend, func() { _ = backend.Close() }, nil

	case config.BackendMemory:
		slog.Warn("using in-memory store; documents are lost on exit")
		backend := store.NewMemoryBackend()
		return backend, func() { _ = backend.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
