// Package archive moves documents between their origin collections and an
// archive collection. Both directions run inside a single transaction so a
// document is always in exactly one of the two places.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docarchive/internal/model"
	"docarchive/internal/store"
)

type Engine struct {
	backend  store.Backend
	settings *Settings
	now      func() time.Time
}

func NewEngine(backend store.Backend, settings *Settings) *Engine {
	if settings == nil {
		settings = NewSettings(DefaultConfig())
	}
	return &Engine{backend: backend, settings: settings, now: time.Now}
}

func (e *Engine) Settings() *Settings {
	return e.settings
}

// Archive moves every document of source matching sel into the archive
// collection and returns how many were moved. Zero matches is not an error.
func (e *Engine) Archive(ctx context.Context, source store.Collection, sel model.Selector) (int, error) {
	return e.archive(ctx, source, sel, e.settings.Get())
}

func (e *Engine) archive(ctx context.Context, source store.Collection, sel model.Selector, cfg Config) (int, error) {
	if source.Name() == cfg.Name {
		return 0, fmt.Errorf("%w: cannot archive %q into itself", model.ErrArchiveCollection, cfg.Name)
	}
	if err := store.ValidateSelector(sel); err != nil {
		return 0, err
	}

	archives := e.backend.Collection(cfg.Name)
	count := 0

	err := e.backend.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		docs, err := source.Find(ctx, tx, sel)
		if err != nil {
			return err
		}
		count = len(docs)
		if count == 0 {
			return nil
		}

		archivedAt := e.now().UTC().Format(time.RFC3339Nano)
		ids := make([]string, 0, len(docs))
		entries := make([]model.Document, 0, len(docs))
		for _, doc := range docs {
			entry, err := toArchived(doc, source.Name(), archives.NewID(), archivedAt)
			if err != nil {
				return err
			}
			ids = append(ids, doc.ID())
			entries = append(entries, entry)
		}

		// Delete before insert so the document is never in both collections.
		removed, err := source.DeleteByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		if removed != len(ids) {
			return fmt.Errorf("%w: removed %d of %d documents from %q", model.ErrConcurrentModification, removed, len(ids), source.Name())
		}

		return archives.InsertMany(ctx, tx, entries)
	})
	if err != nil {
		return 0, fmt.Errorf("archive %q: %w", source.Name(), err)
	}

	slog.Debug("documents archived", "collection", source.Name(), "archive", cfg.Name, "count", count)
	return count, nil
}

// Restore moves archive entries recorded as originating from target and
// matching sel back into target, and returns how many were moved. The
// originCollection constraint is added by Restore and may not appear in sel.
func (e *Engine) Restore(ctx context.Context, target string, sel model.Selector) (int, error) {
	cfg := e.settings.Get()
	if target == cfg.Name {
		return 0, fmt.Errorf("%w: cannot restore into %q", model.ErrArchiveCollection, cfg.Name)
	}
	if _, set := sel[model.FieldOriginCollection]; set {
		return 0, fmt.Errorf("%w: %q is implied by the restore target", model.ErrInvalidSelector, model.FieldOriginCollection)
	}

	query := sel.Clone()
	query[model.FieldOriginCollection] = target
	if err := store.ValidateSelector(query); err != nil {
		return 0, err
	}

	archives := e.backend.Collection(cfg.Name)
	destination := e.backend.Collection(target)
	count := 0

	err := e.backend.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		entries, err := archives.Find(ctx, tx, query)
		if err != nil {
			return err
		}
		count = len(entries)
		if count == 0 {
			return nil
		}

		archiveIDs := make([]string, 0, len(entries))
		docs := make([]model.Document, 0, len(entries))
		for _, entry := range entries {
			doc, originalID := fromArchived(entry)
			if cfg.RestoreOriginalID && originalID != "" {
				doc[model.IDField] = originalID
			} else {
				doc[model.IDField] = destination.NewID()
			}
			archiveIDs = append(archiveIDs, entry.ID())
			docs = append(docs, doc)
		}

		if err := destination.InsertMany(ctx, tx, docs); err != nil {
			return err
		}

		removed, err := archives.DeleteByIDs(ctx, tx, archiveIDs)
		if err != nil {
			return err
		}
		if removed != len(archiveIDs) {
			return fmt.Errorf("%w: removed %d of %d entries from %q", model.ErrConcurrentModification, removed, len(archiveIDs), cfg.Name)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("restore %q: %w", target, err)
	}

	slog.Debug("documents restored", "collection", target, "archive", cfg.Name, "count", count)
	return count, nil
}

// deletePermanently removes matching documents without archiving them.
func (e *Engine) deletePermanently(ctx context.Context, coll store.Collection, sel model.Selector) (int, error) {
	if err := store.ValidateSelector(sel); err != nil {
		return 0, err
	}

	removed := 0
	err := e.backend.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		docs, err := coll.Find(ctx, tx, sel)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			removed = 0
			return nil
		}

		ids := make([]string, 0, len(docs))
		for _, doc := range docs {
			ids = append(ids, doc.ID())
		}
		removed, err = coll.DeleteByIDs(ctx, tx, ids)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete from %q: %w", coll.Name(), err)
	}
	return removed, nil
}
