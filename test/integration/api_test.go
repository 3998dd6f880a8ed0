//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docarchive/internal/archive"
	"docarchive/internal/model"
	"docarchive/internal/repository"
)

func TestAPI_ArchiveFlowOverSQLite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	backend, err := repository.OpenSQLite(ctx, t.TempDir()+"/docs.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	server, editor, admin := newAuthedServer(t, backend)
	base := server.URL + "/api/v1/collections/orders"

	resp := doAuthJSONRequest(t, http.MethodPost, base+"/documents", map[string]any{
		"documents": []map[string]any{{"id": "o1", "status": "done"}, {"id": "o2", "status": "open"}},
	}, editor)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doAuthJSONRequest(t, http.MethodDelete, base+"/documents", map[string]any{
		"selector": map[string]any{"status": "done"},
	}, editor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted model.DeleteResult
	decodeData(t, resp, &deleted)
	assert.Equal(t, model.DeleteResult{Count: 1, Archived: true}, deleted)

	resp = doAuthJSONRequest(t, http.MethodPatch, server.URL+"/api/v1/archive/config", map[string]any{
		"exclude": []string{"orders"},
	}, editor)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doAuthJSONRequest(t, http.MethodPatch, server.URL+"/api/v1/archive/config", map[string]any{
		"exclude": []string{"orders"},
	}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg archive.Config
	decodeData(t, resp, &cfg)
	assert.Equal(t, []string{"orders"}, cfg.Exclude)

	// Excluded now, so this delete is permanent.
	resp = doAuthJSONRequest(t, http.MethodDelete, base+"/documents", map[string]any{
		"selector": map[string]any{"status": "open"},
	}, editor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &deleted)
	assert.Equal(t, model.DeleteResult{Count: 1}, deleted)

	resp = doAuthJSONRequest(t, http.MethodPost, base+"/restore", map[string]any{}, editor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var restored model.CountResponse
	decodeData(t, resp, &restored)
	assert.Equal(t, 1, restored.Count)

	resp = doAuthJSONRequest(t, http.MethodPost, base+"/find", map[string]any{}, editor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found model.FindResponse
	decodeData(t, resp, &found)
	require.Len(t, found.Documents, 1)
	assert.Equal(t, model.Document{"id": "o1", "status": "done"}, found.Documents[0])
}

func TestAPI_ArchiveFlowOverPostgres(t *testing.T) {
	pg := openPostgres(t)
	server, editor, _ := newAuthedServer(t, pg)
	base := server.URL + "/api/v1/collections/" + uniqueName("orders")

	resp := doAuthJSONRequest(t, http.MethodPost, base+"/documents", map[string]any{
		"documents": []map[string]any{{"id": "o1"}, {"id": "o2"}},
	}, editor)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doAuthJSONRequest(t, http.MethodPost, base+"/archive", map[string]any{"selector": map[string]any{}}, editor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var archived model.CountResponse
	decodeData(t, resp, &archived)
	assert.Equal(t, 2, archived.Count)

	resp = doAuthJSONRequest(t, http.MethodPost, base+"/restore", map[string]any{
		"selector": map[string]any{"originalId": "o2"},
	}, editor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var restored model.CountResponse
	decodeData(t, resp, &restored)
	assert.Equal(t, 1, restored.Count)
}
