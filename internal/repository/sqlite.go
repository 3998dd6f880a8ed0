package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"docarchive/internal/model"
	"docarchive/internal/store"
)

// sqliteDeleteChunk keeps DELETE ... IN (...) under the bound parameter limit.
const sqliteDeleteChunk = 500

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL CHECK (json_valid(data)),
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id)
);`

// SQLiteBackend is a single-file document store. Transactions start with
// BEGIN IMMEDIATE so writers are serialized from the first statement.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

var _ store.Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY
	// between our own transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteBackend{db: db, path: path}, nil
}

func (b *SQLiteBackend) Path() string { return b.path }

func (b *SQLiteBackend) Close() error { return b.db.Close() }

type sqliteTx struct {
	backend *SQLiteBackend
	tx      *sql.Tx
	done    bool
}

func (b *SQLiteBackend) WithTransaction(ctx context.Context, work func(ctx context.Context, tx store.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return &store.TxError{Op: "begin", Err: err}
	}
	handle := &sqliteTx{backend: b, tx: tx}
	defer func() {
		handle.done = true
		// No-op after a successful commit; releases the connection on error
		// or panic.
		_ = tx.Rollback()
	}()

	if err := work(ctx, handle); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &store.TxError{Op: "commit", Err: err}
	}
	return nil
}

func (b *SQLiteBackend) Collection(name string) store.Collection {
	return &sqliteCollection{backend: b, name: name}
}

type sqliteCollection struct {
	backend *SQLiteBackend
	name    string
}

func (c *sqliteCollection) Name() string { return c.name }

func (c *sqliteCollection) NewID() string { return uuid.NewString() }

func (c *sqliteCollection) tx(tx store.Tx) (*sql.Tx, error) {
	handle, ok := tx.(*sqliteTx)
	if !ok || handle == nil || handle.backend != c.backend {
		return nil, errForeignTx
	}
	if handle.done {
		return nil, errFinishedTx
	}
	return handle.tx, nil
}

func (c *sqliteCollection) Find(ctx context.Context, tx store.Tx, sel model.Selector) ([]model.Document, error) {
	stx, err := c.tx(tx)
	if err != nil {
		return nil, &store.StoreError{Op: "find", Collection: c.name, Err: err}
	}

	wb := newWhereBuilder(dialectSQLite, c.name)
	where, err := wb.build(sel)
	if err != nil {
		return nil, &store.StoreError{Op: "find", Collection: c.name, Err: err}
	}

	rows, err := stx.QueryContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND `+where+` ORDER BY rowid`,
		wb.args...)
	if err != nil {
		return nil, &store.StoreError{Op: "find", Collection: c.name, Err: err}
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, &store.StoreError{Op: "find", Collection: c.name, Err: fmt.Errorf("scan document: %w", err)}
		}
		doc, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, &store.StoreError{Op: "find", Collection: c.name, Err: fmt.Errorf("decode document: %w", err)}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StoreError{Op: "find", Collection: c.name, Err: err}
	}
	return docs, nil
}

func (c *sqliteCollection) InsertMany(ctx context.Context, tx store.Tx, docs []model.Document) error {
	stx, err := c.tx(tx)
	if err != nil {
		return &store.StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}
	if err := store.CheckIDs(docs); err != nil {
		return &store.StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}
	if len(docs) == 0 {
		return nil
	}

	stmt, err := stx.PrepareContext(ctx, `INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`)
	if err != nil {
		return &store.StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}
	defer stmt.Close()

	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return &store.StoreError{Op: "insert_many", Collection: c.name, Err: fmt.Errorf("%w: %v", model.ErrInvalidDocument, err)}
		}
		if _, err := stmt.ExecContext(ctx, c.name, doc.ID(), string(data)); err != nil {
			if isUniqueViolation(err) {
				err = fmt.Errorf("%w: %q", model.ErrDuplicateID, doc.ID())
			}
			return &store.StoreError{Op: "insert_many", Collection: c.name, Err: err}
		}
	}
	return nil
}

func (c *sqliteCollection) DeleteByIDs(ctx context.Context, tx store.Tx, ids []string) (int, error) {
	stx, err := c.tx(tx)
	if err != nil {
		return 0, &store.StoreError{Op: "delete", Collection: c.name, Err: err}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	removed := 0
	for start := 0; start < len(ids); start += sqliteDeleteChunk {
		chunk := ids[start:min(start+sqliteDeleteChunk, len(ids))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, c.name)
		for _, id := range chunk {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		res, err := stx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = ? AND id IN (`+placeholders+`)`, args...)
		if err != nil {
			return 0, &store.StoreError{Op: "delete", Collection: c.name, Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, &store.StoreError{Op: "delete", Collection: c.name, Err: err}
		}
		removed += int(n)
	}
	return removed, nil
}

// isUniqueViolation reports a primary key or unique constraint failure.
func isUniqueViolation(err error) bool {
	var target interface{ Code() int }
	if errors.As(err, &target) {
		// SQLITE_CONSTRAINT_PRIMARYKEY, SQLITE_CONSTRAINT_UNIQUE
		if code := target.Code(); code == 1555 || code == 2067 {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
