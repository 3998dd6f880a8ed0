// Package store defines the document collection and transaction capabilities
// the archive engine consumes, plus an in-memory implementation.
package store

import (
	"context"
	"fmt"
	"regexp"

	"docarchive/internal/model"
)

// Tx is an open unit of work handed out by a Transactor. Every store call made
// inside WithTransaction must receive the same handle; backends reject handles
// they did not create.
type Tx interface{}

// Collection is the per-collection capability set the engine requires.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Find returns every document matching sel, in insertion order. It has no
	// side effects and may be repeated.
	Find(ctx context.Context, tx Tx, sel model.Selector) ([]model.Document, error)

	// InsertMany inserts all documents in one bulk call. Every document must
	// carry a string "id" that is not already present in the collection.
	InsertMany(ctx context.Context, tx Tx, docs []model.Document) error

	// DeleteByIDs permanently removes the documents with the given ids and
	// returns how many were removed.
	DeleteByIDs(ctx context.Context, tx Tx, ids []string) (int, error)

	// NewID generates a fresh identifier unique within the collection.
	NewID() string
}

// Transactor runs work atomically: all writes made through tx are committed
// when work returns nil and discarded otherwise.
type Transactor interface {
	WithTransaction(ctx context.Context, work func(ctx context.Context, tx Tx) error) error
}

// Backend is a document store that can open collections and transactions.
type Backend interface {
	Transactor

	// Collection returns a handle for the named collection. Collections are
	// created lazily on first insert.
	Collection(name string) Collection

	// Close releases backend resources.
	Close() error
}

// StoreError wraps a failure of a find, insert or delete primitive.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == model.ErrStore }

// TxError reports a failure to begin or commit a transaction.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.Op, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

func (e *TxError) Is(target error) bool { return target == model.ErrTransaction }

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateCollectionName rejects names that are empty, too long or contain
// characters outside [A-Za-z0-9_.-].
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", model.ErrInvalidCollection, name)
	}
	return nil
}

// CheckIDs verifies that every document has a non-empty string id and that no
// id repeats within the batch.
func CheckIDs(docs []model.Document) error {
	seen := make(map[string]struct{}, len(docs))
	for i, doc := range docs {
		id := doc.ID()
		if id == "" {
			return fmt.Errorf("%w: document %d has no string id", model.ErrInvalidDocument, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q repeated in batch", model.ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
