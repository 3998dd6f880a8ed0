package model

// IDField is the identifier every stored document carries.
const IDField = "id"

// Provenance fields stamped on archived documents. Caller documents must not
// use these names.
const (
	FieldOriginCollection = "originCollection"
	FieldArchivedAt       = "archivedAt"
	FieldOriginalID       = "originalId"
)

// ReservedFields lists the provenance field names in a stable order.
var ReservedFields = []string{FieldOriginCollection, FieldArchivedAt, FieldOriginalID}

// Document is an arbitrary JSON-like mapping that always carries an "id".
type Document map[string]any

// ID returns the document identifier, or "" when missing or not a string.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Selector describes which documents an operation acts on. Keys are top-level
// field names; values are literals or operator maps such as {"$in": [...]}.
type Selector map[string]any

// Clone returns a shallow copy of the selector.
func (s Selector) Clone() Selector {
	out := make(Selector, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}
