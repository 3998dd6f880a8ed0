package archive

import (
	"context"
	"fmt"

	"docarchive/internal/model"
	"docarchive/internal/store"
)

// DeleteOptions tunes a Delete call. Permanent bypasses archiving.
type DeleteOptions struct {
	Permanent bool
}

// ArchivableCollection wraps a store collection and routes Delete through the
// archive policy: unless the call is permanent, the collection is excluded, or
// interception is switched off, deleting archives instead.
type ArchivableCollection struct {
	engine *Engine
	coll   store.Collection
}

// Collection returns the archivable wrapper for the named collection.
func (e *Engine) Collection(name string) *ArchivableCollection {
	return &ArchivableCollection{engine: e, coll: e.backend.Collection(name)}
}

func (c *ArchivableCollection) Name() string {
	return c.coll.Name()
}

func (c *ArchivableCollection) Find(ctx context.Context, sel model.Selector) ([]model.Document, error) {
	if err := store.ValidateSelector(sel); err != nil {
		return nil, err
	}

	var docs []model.Document
	err := c.engine.backend.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		docs, err = c.coll.Find(ctx, tx, sel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Insert stores docs and returns their identifiers. Documents without an id
// get one from the collection.
func (c *ArchivableCollection) Insert(ctx context.Context, docs []model.Document) ([]string, error) {
	prepared := make([]model.Document, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		out := doc.Clone()
		if out == nil {
			out = model.Document{}
		}
		raw, has := out[model.IDField]
		if !has {
			out[model.IDField] = c.coll.NewID()
		} else if id, ok := raw.(string); !ok || id == "" {
			return nil, fmt.Errorf("%w: document %d: id must be a non-empty string", model.ErrInvalidDocument, i)
		}
		prepared = append(prepared, out)
		ids = append(ids, out.ID())
	}
	if len(prepared) == 0 {
		return ids, nil
	}

	err := c.engine.backend.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return c.coll.InsertMany(ctx, tx, prepared)
	})
	if err != nil {
		return nil, fmt.Errorf("insert into %q: %w", c.coll.Name(), err)
	}
	return ids, nil
}

func (c *ArchivableCollection) Archive(ctx context.Context, sel model.Selector) (int, error) {
	return c.engine.Archive(ctx, c.coll, sel)
}

func (c *ArchivableCollection) Restore(ctx context.Context, sel model.Selector) (int, error) {
	return c.engine.Restore(ctx, c.coll.Name(), sel)
}

// Delete removes matching documents and returns how many were affected,
// whether they were archived or deleted permanently.
func (c *ArchivableCollection) Delete(ctx context.Context, sel model.Selector, opts DeleteOptions) (int, error) {
	result, err := c.Remove(ctx, sel, opts)
	return result.Count, err
}

// Remove is Delete that also reports which path was taken.
func (c *ArchivableCollection) Remove(ctx context.Context, sel model.Selector, opts DeleteOptions) (model.DeleteResult, error) {
	cfg := c.engine.settings.Get()

	if !intercepts(cfg, c.coll.Name(), opts) {
		n, err := c.engine.deletePermanently(ctx, c.coll, sel)
		if err != nil {
			return model.DeleteResult{}, err
		}
		return model.DeleteResult{Count: n}, nil
	}

	n, err := c.engine.archive(ctx, c.coll, sel, cfg)
	if err != nil {
		return model.DeleteResult{}, err
	}
	return model.DeleteResult{Count: n, Archived: true}, nil
}

// intercepts reports whether a delete on the named collection is rewritten to
// an archive. The archive collection itself is never intercepted.
func intercepts(cfg Config, name string, opts DeleteOptions) bool {
	switch {
	case opts.Permanent, !cfg.InterceptDelete:
		return false
	case name == cfg.Name, cfg.Excludes(name):
		return false
	}
	return true
}
