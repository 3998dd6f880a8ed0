package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"docarchive/internal/archive"
	"docarchive/internal/event"
	"docarchive/internal/model"
	"docarchive/internal/service"
	"docarchive/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	engine := archive.NewEngine(store.NewMemoryBackend(), nil)
	svc := service.NewCollectionService(engine, event.NewBus())
	collections := NewCollectionHandler(svc)
	cfg := NewConfigHandler(svc)

	r := chi.NewRouter()
	r.Route("/collections/{name}", func(c chi.Router) {
		c.Post("/documents", collections.Insert)
		c.Post("/find", collections.Find)
		c.Delete("/documents", collections.Delete)
		c.Post("/archive", collections.Archive)
		c.Post("/restore", collections.Restore)
	})
	r.Get("/config", cfg.Get)
	r.Patch("/config", cfg.Patch)
	return r
}

func call(t *testing.T, h http.Handler, method string, path string, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestCollectionHandler_Lifecycle(t *testing.T) {
	h := newTestRouter(t)

	status, env := call(t, h, http.MethodPost, "/collections/things/documents",
		`{"documents":[{"id":"a","name":"test"},{"id":"b","name":"test"},{"id":"c","name":"keep"}]}`)
	require.Equal(t, http.StatusCreated, status)
	var inserted model.InsertResponse
	require.NoError(t, json.Unmarshal(env.Data, &inserted))
	require.Equal(t, []string{"a", "b", "c"}, inserted.IDs)

	status, env = call(t, h, http.MethodDelete, "/collections/things/documents", `{"selector":{"name":"test"}}`)
	require.Equal(t, http.StatusOK, status)
	var deleted model.DeleteResult
	require.NoError(t, json.Unmarshal(env.Data, &deleted))
	require.Equal(t, model.DeleteResult{Count: 2, Archived: true}, deleted)

	status, env = call(t, h, http.MethodPost, "/collections/archives/find", `{"selector":{"originCollection":"things"}}`)
	require.Equal(t, http.StatusOK, status)
	var found model.FindResponse
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found.Documents, 2)
	require.Equal(t, "a", found.Documents[0]["originalId"])

	status, env = call(t, h, http.MethodPost, "/collections/things/restore", `{"selector":{"originalId":"b"}}`)
	require.Equal(t, http.StatusOK, status)
	var restored model.CountResponse
	require.NoError(t, json.Unmarshal(env.Data, &restored))
	require.Equal(t, 1, restored.Count)

	status, env = call(t, h, http.MethodPost, "/collections/things/find", `{"selector":{"id":{"$in":["b","c"]}}}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found.Documents, 2)

	status, env = call(t, h, http.MethodDelete, "/collections/things/documents", `{"selector":{},"permanent":true}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &deleted))
	require.Equal(t, model.DeleteResult{Count: 2}, deleted)
}

func TestCollectionHandler_Errors(t *testing.T) {
	h := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed json", http.MethodPost, "/collections/things/find", `{"selector":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown field", http.MethodPost, "/collections/things/find", `{"query":{}}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad selector", http.MethodPost, "/collections/things/find", `{"selector":{"a":{"$regex":"x"}}}`, http.StatusBadRequest, "INVALID_SELECTOR"},
		{"bad collection", http.MethodPost, "/collections/-x/find", `{}`, http.StatusBadRequest, "INVALID_COLLECTION"},
		{"empty insert", http.MethodPost, "/collections/things/documents", `{"documents":[]}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"non-string id", http.MethodPost, "/collections/things/documents", `{"documents":[{"id":1}]}`, http.StatusBadRequest, "INVALID_DOCUMENT"},
		{"delete without selector", http.MethodDelete, "/collections/things/documents", `{}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"archive the archive", http.MethodPost, "/collections/archives/archive", `{"selector":{}}`, http.StatusBadRequest, "ARCHIVE_COLLECTION"},
		{"restore with origin", http.MethodPost, "/collections/things/restore", `{"selector":{"originCollection":"x"}}`, http.StatusBadRequest, "INVALID_SELECTOR"},
		{"bad config", http.MethodPatch, "/config", `{"overrideRemove":"yes"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"empty config", http.MethodPatch, "/config", `{}`, http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := call(t, h, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, status)
			require.False(t, env.Success)
			require.NotNil(t, env.Error)
			require.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestCollectionHandler_DuplicateAndReserved(t *testing.T) {
	h := newTestRouter(t)

	status, _ := call(t, h, http.MethodPost, "/collections/things/documents", `{"documents":[{"id":"a","archivedAt":"x"}]}`)
	require.Equal(t, http.StatusCreated, status)

	status, env := call(t, h, http.MethodPost, "/collections/things/documents", `{"documents":[{"id":"a"}]}`)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "DUPLICATE_ID", env.Error.Code)

	status, env = call(t, h, http.MethodPost, "/collections/things/archive", `{"selector":{}}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "RESERVED_FIELD", env.Error.Code)
}

func TestConfigHandler(t *testing.T) {
	h := newTestRouter(t)

	status, env := call(t, h, http.MethodPatch, "/config", `{"overrideRemove":false,"exclude":["audit"]}`)
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, h, http.MethodGet, "/config", ``)
	require.Equal(t, http.StatusOK, status)
	var cfg archive.Config
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	require.Equal(t, archive.Config{Name: "archives", InterceptDelete: false, Exclude: []string{"audit"}, RestoreOriginalID: true}, cfg)

	call(t, h, http.MethodPost, "/collections/things/documents", `{"documents":[{"id":"a"}]}`)
	status, env = call(t, h, http.MethodDelete, "/collections/things/documents", `{"selector":{}}`)
	require.Equal(t, http.StatusOK, status)
	var deleted model.DeleteResult
	require.NoError(t, json.Unmarshal(env.Data, &deleted))
	require.False(t, deleted.Archived)
}
