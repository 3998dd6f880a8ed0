package service

import (
	"context"
	"fmt"
	"log/slog"

	"docarchive/internal/archive"
	"docarchive/internal/event"
	"docarchive/internal/model"
	"docarchive/internal/store"
)

// CollectionService exposes document operations with archive-aware deletes
// and publishes an event for every change.
type CollectionService struct {
	engine *archive.Engine
	bus    event.Bus
}

func NewCollectionService(engine *archive.Engine, bus event.Bus) *CollectionService {
	return &CollectionService{engine: engine, bus: bus}
}

func (s *CollectionService) collection(name string) (*archive.ArchivableCollection, error) {
	if err := store.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	return s.engine.Collection(name), nil
}

func (s *CollectionService) Insert(ctx context.Context, actor model.Actor, name string, docs []model.Document) (model.InsertResponse, error) {
	coll, err := s.collection(name)
	if err != nil {
		return model.InsertResponse{}, err
	}
	if len(docs) == 0 {
		return model.InsertResponse{}, fmt.Errorf("%w: no documents to insert", model.ErrInvalidInput)
	}

	ids, err := coll.Insert(ctx, docs)
	if err != nil {
		return model.InsertResponse{}, err
	}

	slog.Info("documents inserted", "collection", name, "count", len(ids), "actor", actor.UserID)
	s.publish(event.TypeDocumentsInserted, event.DocumentsPayload{Collection: name, Count: len(ids)}, actor)
	return model.InsertResponse{Collection: name, IDs: ids}, nil
}

func (s *CollectionService) Find(ctx context.Context, name string, sel model.Selector) (model.FindResponse, error) {
	coll, err := s.collection(name)
	if err != nil {
		return model.FindResponse{}, err
	}

	docs, err := coll.Find(ctx, sel)
	if err != nil {
		return model.FindResponse{}, err
	}
	return model.FindResponse{Collection: name, Documents: docs}, nil
}

// Delete removes matching documents. Unless permanent is set, the archive
// policy decides whether they are archived instead.
func (s *CollectionService) Delete(ctx context.Context, actor model.Actor, name string, sel model.Selector, permanent bool) (model.DeleteResult, error) {
	coll, err := s.collection(name)
	if err != nil {
		return model.DeleteResult{}, err
	}

	result, err := coll.Remove(ctx, sel, archive.DeleteOptions{Permanent: permanent})
	if err != nil {
		return model.DeleteResult{}, err
	}

	// Nothing matched; subscribers only hear about real changes.
	if result.Count == 0 {
		return result, nil
	}

	if result.Archived {
		archiveName := s.engine.Settings().Get().Name
		slog.Info("delete archived documents", "collection", name, "archive", archiveName, "count", result.Count, "actor", actor.UserID)
		s.publish(event.TypeDocumentsArchived, event.DocumentsPayload{Collection: name, Archive: archiveName, Count: result.Count}, actor)
	} else {
		slog.Info("documents deleted", "collection", name, "count", result.Count, "permanent", permanent, "actor", actor.UserID)
		s.publish(event.TypeDocumentsDeleted, event.DocumentsPayload{Collection: name, Count: result.Count}, actor)
	}
	return result, nil
}

// Archive moves matching documents into the archive collection. Events are
// published only when something moved.
func (s *CollectionService) Archive(ctx context.Context, actor model.Actor, name string, sel model.Selector) (model.CountResponse, error) {
	coll, err := s.collection(name)
	if err != nil {
		return model.CountResponse{}, err
	}

	n, err := coll.Archive(ctx, sel)
	if err != nil {
		return model.CountResponse{}, err
	}

	if n > 0 {
		archiveName := s.engine.Settings().Get().Name
		slog.Info("documents archived", "collection", name, "archive", archiveName, "count", n, "actor", actor.UserID)
		s.publish(event.TypeDocumentsArchived, event.DocumentsPayload{Collection: name, Archive: archiveName, Count: n}, actor)
	}
	return model.CountResponse{Collection: name, Count: n}, nil
}

func (s *CollectionService) Restore(ctx context.Context, actor model.Actor, name string, sel model.Selector) (model.CountResponse, error) {
	coll, err := s.collection(name)
	if err != nil {
		return model.CountResponse{}, err
	}

	n, err := coll.Restore(ctx, sel)
	if err != nil {
		return model.CountResponse{}, err
	}

	if n > 0 {
		archiveName := s.engine.Settings().Get().Name
		slog.Info("documents restored", "collection", name, "archive", archiveName, "count", n, "actor", actor.UserID)
		s.publish(event.TypeDocumentsRestored, event.DocumentsPayload{Collection: name, Archive: archiveName, Count: n}, actor)
	}
	return model.CountResponse{Collection: name, Count: n}, nil
}

func (s *CollectionService) Config() archive.Config {
	return s.engine.Settings().Get()
}

// Configure merges raw options (as decoded from a JSON body) into the archive
// settings.
func (s *CollectionService) Configure(actor model.Actor, raw map[string]any) (archive.Config, error) {
	opts, err := archive.ParseOptions(raw)
	if err != nil {
		return archive.Config{}, err
	}
	cfg, err := s.engine.Settings().Configure(opts)
	if err != nil {
		return archive.Config{}, err
	}

	s.Configured(cfg, actor)
	return cfg, nil
}

// Configured logs and announces an applied configuration, including ones
// that arrive from a reloaded config file.
func (s *CollectionService) Configured(cfg archive.Config, actor model.Actor) {
	slog.Info("archive configured", "name", cfg.Name, "override_remove", cfg.InterceptDelete,
		"exclude", cfg.Exclude, "restore_original_id", cfg.RestoreOriginalID, "actor", actor.UserID)
	s.publish(event.TypeArchiveConfigured, cfg, actor)
}

func (s *CollectionService) publish(t event.Type, payload any, actor model.Actor) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(t, payload, actor.UserID))
}
