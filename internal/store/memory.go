package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"docarchive/internal/model"
)

// MemoryBackend keeps every collection in memory. Data is lost on restart.
// Transactions are serialized: WithTransaction holds the backend lock for the
// whole unit of work and stages writes on copies of the touched collections,
// swapping them in only on commit. WithTransaction is not reentrant.
type MemoryBackend struct {
	mu          sync.Mutex
	collections map[string]map[string]memoryEntry
	seq         uint64
}

type memoryEntry struct {
	doc model.Document
	seq uint64
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]map[string]memoryEntry),
	}
}

type memoryTx struct {
	backend *MemoryBackend
	staged  map[string]map[string]memoryEntry
	done    bool
}

func (b *MemoryBackend) WithTransaction(ctx context.Context, work func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return &TxError{Op: "begin", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tx := &memoryTx{backend: b, staged: make(map[string]map[string]memoryEntry)}
	defer func() { tx.done = true }()

	if err := work(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &TxError{Op: "commit", Err: err}
	}

	for name, docs := range tx.staged {
		b.collections[name] = docs
	}
	return nil
}

func (b *MemoryBackend) Collection(name string) Collection {
	return &memoryCollection{backend: b, name: name}
}

func (b *MemoryBackend) Close() error { return nil }

// view returns the collection as seen inside the transaction.
func (tx *memoryTx) view(name string) map[string]memoryEntry {
	if staged, ok := tx.staged[name]; ok {
		return staged
	}
	return tx.backend.collections[name]
}

// writable returns a transaction-private copy of the collection, created on
// first write. Entries are immutable so a shallow map copy is enough.
func (tx *memoryTx) writable(name string) map[string]memoryEntry {
	if staged, ok := tx.staged[name]; ok {
		return staged
	}
	committed := tx.backend.collections[name]
	staged := make(map[string]memoryEntry, len(committed))
	for id, entry := range committed {
		staged[id] = entry
	}
	tx.staged[name] = staged
	return staged
}

type memoryCollection struct {
	backend *MemoryBackend
	name    string
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) NewID() string { return uuid.NewString() }

func (c *memoryCollection) tx(tx Tx) (*memoryTx, error) {
	mtx, ok := tx.(*memoryTx)
	if !ok || mtx == nil || mtx.backend != c.backend {
		return nil, errors.New("transaction handle does not belong to this backend")
	}
	if mtx.done {
		return nil, errors.New("transaction already finished")
	}
	return mtx, nil
}

func (c *memoryCollection) Find(ctx context.Context, tx Tx, sel model.Selector) ([]model.Document, error) {
	mtx, err := c.tx(tx)
	if err != nil {
		return nil, &StoreError{Op: "find", Collection: c.name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "find", Collection: c.name, Err: err}
	}

	conds, err := ParseSelector(sel)
	if err != nil {
		return nil, &StoreError{Op: "find", Collection: c.name, Err: err}
	}

	matched := make([]memoryEntry, 0)
	for _, entry := range mtx.view(c.name) {
		if Matches(conds, entry.doc) {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	docs := make([]model.Document, 0, len(matched))
	for _, entry := range matched {
		copied, err := deepCopy(entry.doc)
		if err != nil {
			return nil, &StoreError{Op: "find", Collection: c.name, Err: err}
		}
		docs = append(docs, copied)
	}
	return docs, nil
}

func (c *memoryCollection) InsertMany(ctx context.Context, tx Tx, docs []model.Document) error {
	mtx, err := c.tx(tx)
	if err != nil {
		return &StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}
	if err := CheckIDs(docs); err != nil {
		return &StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}

	current := mtx.view(c.name)
	prepared := make([]model.Document, 0, len(docs))
	for _, doc := range docs {
		if _, exists := current[doc.ID()]; exists {
			return &StoreError{Op: "insert_many", Collection: c.name, Err: fmt.Errorf("%w: %q", model.ErrDuplicateID, doc.ID())}
		}
		copied, err := deepCopy(doc)
		if err != nil {
			return &StoreError{Op: "insert_many", Collection: c.name, Err: fmt.Errorf("%w: %v", model.ErrInvalidDocument, err)}
		}
		prepared = append(prepared, copied)
	}

	target := mtx.writable(c.name)
	for _, doc := range prepared {
		c.backend.seq++
		target[doc.ID()] = memoryEntry{doc: doc, seq: c.backend.seq}
	}
	return nil
}

func (c *memoryCollection) DeleteByIDs(ctx context.Context, tx Tx, ids []string) (int, error) {
	mtx, err := c.tx(tx)
	if err != nil {
		return 0, &StoreError{Op: "delete", Collection: c.name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return 0, &StoreError{Op: "delete", Collection: c.name, Err: err}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	target := mtx.writable(c.name)
	removed := 0
	for _, id := range ids {
		if _, ok := target[id]; ok {
			delete(target, id)
			removed++
		}
	}
	return removed, nil
}

// deepCopy returns a deep copy of a document by round-tripping through JSON,
// which also normalizes values to the JSON data model.
func deepCopy(src model.Document) (model.Document, error) {
	if src == nil {
		return nil, nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var dst model.Document
	if err := json.Unmarshal(b, &dst); err != nil {
		return nil, err
	}
	return dst, nil
}
