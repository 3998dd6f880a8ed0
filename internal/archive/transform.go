package archive

import (
	"fmt"

	"docarchive/internal/model"
)

// toArchived builds the archive form of doc: its id moves to originalId, the
// archive collection's id takes its place and provenance is stamped.
func toArchived(doc model.Document, origin string, archiveID string, archivedAt string) (model.Document, error) {
	for _, field := range model.ReservedFields {
		if _, taken := doc[field]; taken {
			return nil, fmt.Errorf("%w: document %q in %q has field %q", model.ErrReservedField, doc.ID(), origin, field)
		}
	}

	out := doc.Clone()
	out[model.FieldOriginalID] = doc[model.IDField]
	out[model.IDField] = archiveID
	out[model.FieldOriginCollection] = origin
	out[model.FieldArchivedAt] = archivedAt
	return out, nil
}

// fromArchived strips provenance from an archive entry. It returns the
// reconstructed document without an id, plus the archived original id ("" if
// absent or not a string).
func fromArchived(entry model.Document) (model.Document, string) {
	out := entry.Clone()
	originalID, _ := out[model.FieldOriginalID].(string)

	delete(out, model.IDField)
	delete(out, model.FieldOriginalID)
	delete(out, model.FieldOriginCollection)
	delete(out, model.FieldArchivedAt)
	return out, originalID
}
