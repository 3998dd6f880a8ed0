package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docarchive/internal/model"
)

func TestToArchived(t *testing.T) {
	doc := model.Document{"id": "42", "name": "n"}

	entry, err := toArchived(doc, "things", "a-1", "2026-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, model.Document{
		"id":               "a-1",
		"name":             "n",
		"originalId":       "42",
		"originCollection": "things",
		"archivedAt":       "2026-01-01T00:00:00Z",
	}, entry)
	assert.Equal(t, "42", doc.ID(), "input is not modified")

	for _, field := range model.ReservedFields {
		_, err := toArchived(model.Document{"id": "1", field: "x"}, "things", "a", "t")
		assert.ErrorIs(t, err, model.ErrReservedField, field)
	}
}

func TestFromArchived(t *testing.T) {
	doc, originalID := fromArchived(model.Document{
		"id":               "a-1",
		"name":             "n",
		"originalId":       "42",
		"originCollection": "things",
		"archivedAt":       "2026-01-01T00:00:00Z",
	})
	assert.Equal(t, "42", originalID)
	assert.Equal(t, model.Document{"name": "n"}, doc)

	_, originalID = fromArchived(model.Document{"id": "a-2", "originalId": 7})
	assert.Empty(t, originalID)
}
