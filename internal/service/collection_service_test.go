package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docarchive/internal/archive"
	"docarchive/internal/event"
	"docarchive/internal/model"
	"docarchive/internal/store"
)

func newCollectionService(t *testing.T) (*CollectionService, <-chan event.Event) {
	t.Helper()
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	engine := archive.NewEngine(store.NewMemoryBackend(), nil)
	return NewCollectionService(engine, bus), events
}

func TestCollectionService_DeleteArchivesAndRestores(t *testing.T) {
	ctx := context.Background()
	svc, events := newCollectionService(t)
	actor := model.Actor{UserID: "u1", Role: model.RoleEditor}

	inserted, err := svc.Insert(ctx, actor, "things", []model.Document{{"name": "test"}, {"name": "test"}})
	require.NoError(t, err)
	require.Len(t, inserted.IDs, 2)
	assert.Equal(t, event.TypeDocumentsInserted, (<-events).Type)

	result, err := svc.Delete(ctx, actor, "things", model.Selector{"name": "test"}, false)
	require.NoError(t, err)
	assert.Equal(t, model.DeleteResult{Count: 2, Archived: true}, result)

	ev := <-events
	assert.Equal(t, event.TypeDocumentsArchived, ev.Type)
	assert.Equal(t, "u1", ev.ActorID)
	assert.Equal(t, event.DocumentsPayload{Collection: "things", Archive: "archives", Count: 2}, ev.Payload)

	found, err := svc.Find(ctx, "archives", model.Selector{"originCollection": "things"})
	require.NoError(t, err)
	assert.Len(t, found.Documents, 2)

	restored, err := svc.Restore(ctx, actor, "things", model.Selector{"name": "test"})
	require.NoError(t, err)
	assert.Equal(t, model.CountResponse{Collection: "things", Count: 2}, restored)
	assert.Equal(t, event.TypeDocumentsRestored, (<-events).Type)

	found, err = svc.Find(ctx, "things", nil)
	require.NoError(t, err)
	assert.Len(t, found.Documents, 2)
}

func TestCollectionService_PermanentDelete(t *testing.T) {
	ctx := context.Background()
	svc, events := newCollectionService(t)

	_, err := svc.Insert(ctx, model.Actor{}, "things", []model.Document{{"id": "1"}})
	require.NoError(t, err)
	<-events

	result, err := svc.Delete(ctx, model.Actor{}, "things", nil, true)
	require.NoError(t, err)
	assert.Equal(t, model.DeleteResult{Count: 1}, result)
	assert.Equal(t, event.TypeDocumentsDeleted, (<-events).Type)

	found, err := svc.Find(ctx, "archives", nil)
	require.NoError(t, err)
	assert.Empty(t, found.Documents)
}

func TestCollectionService_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCollectionService(t)

	_, err := svc.Insert(ctx, model.Actor{}, "bad name", []model.Document{{}})
	assert.ErrorIs(t, err, model.ErrInvalidCollection)

	_, err = svc.Insert(ctx, model.Actor{}, "things", nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.Archive(ctx, model.Actor{}, "archives", nil)
	assert.ErrorIs(t, err, model.ErrArchiveCollection)

	_, err = svc.Find(ctx, "things", model.Selector{"$where": "1"})
	assert.ErrorIs(t, err, model.ErrInvalidSelector)
}

func TestCollectionService_Configure(t *testing.T) {
	svc, events := newCollectionService(t)

	cfg, err := svc.Configure(model.Actor{UserID: "admin"}, map[string]any{"overrideRemove": false, "exclude": []any{}})
	require.NoError(t, err)
	assert.False(t, cfg.InterceptDelete)
	assert.Empty(t, cfg.Exclude)
	assert.Equal(t, cfg, svc.Config())

	ev := <-events
	assert.Equal(t, event.TypeArchiveConfigured, ev.Type)
	assert.Equal(t, cfg, ev.Payload)

	_, err = svc.Configure(model.Actor{}, map[string]any{"name": ""})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, "archives", svc.Config().Name)
}

func TestCollectionService_NoMatchPublishesNothing(t *testing.T) {
	ctx := context.Background()
	svc, events := newCollectionService(t)
	actor := model.Actor{UserID: "u1", Role: model.RoleEditor}

	archived, err := svc.Archive(ctx, actor, "things", model.Selector{"name": "missing"})
	require.NoError(t, err)
	assert.Equal(t, model.CountResponse{Collection: "things", Count: 0}, archived)

	restored, err := svc.Restore(ctx, actor, "things", model.Selector{"name": "missing"})
	require.NoError(t, err)
	assert.Equal(t, model.CountResponse{Collection: "things", Count: 0}, restored)

	deleted, err := svc.Delete(ctx, actor, "things", model.Selector{"name": "missing"}, false)
	require.NoError(t, err)
	assert.Zero(t, deleted.Count)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}
