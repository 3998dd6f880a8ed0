package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"docarchive/internal/model"
	"docarchive/internal/store"
)

const pgUniqueViolation = "23505"

var (
	errForeignTx  = errors.New("transaction handle does not belong to this backend")
	errFinishedTx = errors.New("transaction already finished")
)

// PostgresBackend stores every collection in the documents table, keyed by
// (collection, id), with the document body in a JSONB column.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*PostgresBackend)(nil)

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

type pgTx struct {
	backend *PostgresBackend
	tx      pgx.Tx
	done    bool
}

// WithTransaction runs work in a READ COMMITTED transaction. Find locks the
// rows it returns, so a concurrent archive or restore of the same documents
// waits and then sees them gone.
func (b *PostgresBackend) WithTransaction(ctx context.Context, work func(ctx context.Context, tx store.Tx) error) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return &store.TxError{Op: "begin", Err: err}
	}
	handle := &pgTx{backend: b, tx: tx}
	defer func() {
		handle.done = true
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := work(ctx, handle); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &store.TxError{Op: "commit", Err: err}
	}
	return nil
}

func (b *PostgresBackend) Collection(name string) store.Collection {
	return &pgCollection{backend: b, name: name}
}

// Close is a no-op; the pool belongs to the caller.
func (b *PostgresBackend) Close() error { return nil }

type pgCollection struct {
	backend *PostgresBackend
	name    string
}

func (c *pgCollection) Name() string { return c.name }

func (c *pgCollection) NewID() string { return uuid.NewString() }

func (c *pgCollection) tx(tx store.Tx) (pgx.Tx, error) {
	handle, ok := tx.(*pgTx)
	if !ok || handle == nil || handle.backend != c.backend {
		return nil, errForeignTx
	}
	if handle.done {
		return nil, errFinishedTx
	}
	return handle.tx, nil
}

func (c *pgCollection) Find(ctx context.Context, tx store.Tx, sel model.Selector) ([]model.Document, error) {
	ptx, err := c.tx(tx)
	if err != nil {
		return nil, &store.StoreError{Op: "find", Collection: c.name, Err: err}
	}

	wb := newWhereBuilder(dialectPostgres, c.name)
	where, err := wb.build(sel)
	if err != nil {
		return nil, &store.StoreError{Op: "find", Collection: c.name, Err: err}
	}

	rows, err := ptx.Query(ctx,
		`SELECT data FROM documents
		 WHERE collection = $1 AND `+where+`
		 ORDER BY seq
		 FOR UPDATE`, wb.args...)
	if err != nil {
		return nil, &store.StoreError{Op: "find", Collection: c.name, Err: err}
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, &store.StoreError{Op: "find", Collection: c.name, Err: fmt.Errorf("scan document: %w", err)}
		}
		doc, err := decodeDocument(raw)
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

func (c *pgCollection) InsertMany(ctx context.Context, tx store.Tx, docs []model.Document) error {
	ptx, err := c.tx(tx)
	if err != nil {
		return &store.StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}
	if err := store.CheckIDs(docs); err != nil {
		return &store.StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return &store.StoreError{Op: "insert_many", Collection: c.name, Err: fmt.Errorf("%w: %v", model.ErrInvalidDocument, err)}
		}
		batch.Queue(
			`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`,
			c.name, doc.ID(), string(data))
	}

	br := ptx.SendBatch(ctx, batch)
	for _, doc := range docs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				err = fmt.Errorf("%w: %q", model.ErrDuplicateID, doc.ID())
			}
			return &store.StoreError{Op: "insert_many", Collection: c.name, Err: err}
		}
	}
	if err := br.Close(); err != nil {
		return &store.StoreError{Op: "insert_many", Collection: c.name, Err: err}
	}
	return nil
}

func (c *pgCollection) DeleteByIDs(ctx context.Context, tx store.Tx, ids []string) (int, error) {
	ptx, err := c.tx(tx)
	if err != nil {
		return 0, &store.StoreError{Op: "delete", Collection: c.name, Err: err}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := ptx.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = ANY($2)`,
		c.name, ids)
	if err != nil {
		return 0, &store.StoreError{Op: "delete", Collection: c.name, Err: err}
	}
	return int(tag.RowsAffected()), nil
}
