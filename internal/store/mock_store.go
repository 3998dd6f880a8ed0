package store

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docarchive/internal/model"
)

// MockCollection records calls for tests. Find, InsertMany and DeleteByIDs are
// matched on their payload argument only.
type MockCollection struct {
	mock.Mock
	CollectionName string
}

func (m *MockCollection) Name() string {
	return m.CollectionName
}

func (m *MockCollection) Find(_ context.Context, _ Tx, sel model.Selector) ([]model.Document, error) {
	args := m.Called(sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockCollection) InsertMany(_ context.Context, _ Tx, docs []model.Document) error {
	args := m.Called(docs)
	return args.Error(0)
}

func (m *MockCollection) DeleteByIDs(_ context.Context, _ Tx, ids []string) (int, error) {
	args := m.Called(ids)
	return args.Int(0), args.Error(1)
}

func (m *MockCollection) NewID() string {
	args := m.Called()
	return args.String(0)
}

// MockBackend hands out MockCollections by name. WithTransaction consults the
// mock for a begin error (first return) and a commit error (second return).
type MockBackend struct {
	mock.Mock
	Collections map[string]*MockCollection
}

type mockTx struct{}

func (m *MockBackend) WithTransaction(ctx context.Context, work func(ctx context.Context, tx Tx) error) error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return err
	}
	if err := work(ctx, mockTx{}); err != nil {
		return err
	}
	return args.Error(1)
}

func (m *MockBackend) Collection(name string) Collection {
	if m.Collections == nil {
		m.Collections = map[string]*MockCollection{}
	}
	coll, ok := m.Collections[name]
	if !ok {
		coll = &MockCollection{CollectionName: name}
		m.Collections[name] = coll
	}
	return coll
}

func (m *MockBackend) Close() error {
	return nil
}
