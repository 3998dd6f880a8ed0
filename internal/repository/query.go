package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"docarchive/internal/model"
	"docarchive/internal/store"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// whereBuilder compiles parsed selector conditions into a SQL predicate over
// the documents.data column. The predicate never evaluates to NULL, so NOT can
// be applied to it safely.
type whereBuilder struct {
	dialect dialect
	args    []any
}

func newWhereBuilder(d dialect, args ...any) *whereBuilder {
	return &whereBuilder{dialect: d, args: args}
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	if b.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

// build returns the conjunction of all conditions, or TRUE when there are none.
func (b *whereBuilder) build(sel model.Selector) (string, error) {
	conds, err := store.ParseSelector(sel)
	if err != nil {
		return "", err
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}

	parts := make([]string, 0, len(conds))
	for _, cond := range conds {
		clause, err := b.condition(cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	return strings.Join(parts, " AND "), nil
}

func (b *whereBuilder) condition(cond store.Condition) (string, error) {
	switch cond.Op {
	case store.OpEq:
		return b.equal(cond.Field, cond.Values[0])
	case store.OpNe:
		clause, err := b.equal(cond.Field, cond.Values[0])
		return "NOT " + clause, err
	case store.OpIn:
		return b.anyEqual(cond.Field, cond.Values)
	case store.OpNin:
		clause, err := b.anyEqual(cond.Field, cond.Values)
		return "NOT " + clause, err
	case store.OpExists:
		if cond.Exists {
			return b.exists(cond.Field), nil
		}
		return "NOT " + b.exists(cond.Field), nil
	}
	return "", fmt.Errorf("%w: unsupported operator %q", model.ErrInvalidSelector, cond.Op)
}

func (b *whereBuilder) anyEqual(field string, values []any) (string, error) {
	if len(values) == 0 {
		return "FALSE", nil
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		clause, err := b.equal(field, v)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

func (b *whereBuilder) exists(field string) string {
	if b.dialect == dialectPostgres {
		return fmt.Sprintf("(data ? %s::text)", b.arg(field))
	}
	return fmt.Sprintf("(json_type(data, %s) IS NOT NULL)", b.arg(jsonPath(field)))
}

// equal matches the field against a normalized JSON value. A null operand
// matches both an explicit null and a missing field.
func (b *whereBuilder) equal(field string, value any) (string, error) {
	if value == nil {
		if b.dialect == dialectPostgres {
			return fmt.Sprintf("(COALESCE(data -> %s::text, 'null'::jsonb) = 'null'::jsonb)", b.arg(field)), nil
		}
		return fmt.Sprintf("(COALESCE(json_type(data, %s), 'null') = 'null')", b.arg(jsonPath(field))), nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: field %q: %v", model.ErrInvalidSelector, field, err)
	}

	if b.dialect == dialectPostgres {
		if s, ok := value.(string); ok && field == model.IDField {
			return fmt.Sprintf("(id = %s)", b.arg(s)), nil
		}
		return fmt.Sprintf("COALESCE(data -> %s::text = %s::jsonb, FALSE)", b.arg(field), b.arg(string(encoded))), nil
	}

	// json_type separates true from 1 and "[1]" from [1]; json_extract then
	// compares the scalar or the canonical encoding of a container.
	path := jsonPath(field)
	return fmt.Sprintf("COALESCE(json_type(data, %s) = json_type(%s) AND json_extract(data, %s) = json_extract(%s, '$'), FALSE)",
		b.arg(path), b.arg(string(encoded)), b.arg(path), b.arg(string(encoded))), nil
}

// jsonPath quotes a top-level field for SQLite's JSON functions. Selector
// field names never contain quotes or backslashes.
func jsonPath(field string) string {
	return `$."` + field + `"`
}

// decodeDocument decodes a stored document body. Numbers stay json.Number so
// integers beyond float64 precision survive an archive and restore.
func decodeDocument(raw []byte) (model.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc model.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
