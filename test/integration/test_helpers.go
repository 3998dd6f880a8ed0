//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"docarchive/internal/archive"
	"docarchive/internal/config"
	"docarchive/internal/database"
	"docarchive/internal/event"
	"docarchive/internal/handler"
	"docarchive/internal/middleware"
	"docarchive/internal/repository"
	"docarchive/internal/router"
	"docarchive/internal/service"
	"docarchive/internal/store"
)

const testSecret = "integration-secret-0123456789abcdef"

// openPostgres connects to DATABASE_URL, skipping the test when it is unset.
func openPostgres(t *testing.T) *repository.PostgresBackend {
	t.Helper()

	url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.Options{URL: url, MaxConns: 8, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	return repository.NewPostgresBackend(db.Pool)
}

// uniqueName returns a collection name no other test run uses, so tests can
// share one database.
func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// newTestEngine builds an engine whose archive collection is private to the
// test.
func newTestEngine(t *testing.T, backend store.Backend) (*archive.Engine, string) {
	t.Helper()
	cfg := archive.DefaultConfig()
	cfg.Name = uniqueName("archives")
	return archive.NewEngine(backend, archive.NewSettings(cfg)), cfg.Name
}

// newAuthedServer serves the full API over backend with authentication on,
// and returns tokens for an editor and an admin.
func newAuthedServer(t *testing.T, backend store.Backend) (*httptest.Server, string, string) {
	t.Helper()

	engine, _ := newTestEngine(t, backend)
	bus := event.NewBus()
	collectionService := service.NewCollectionService(engine, bus)

	tokens, err := service.NewTokenService(testSecret, 15*time.Minute)
	require.NoError(t, err)

	cfg := &config.Config{
		ServerPort:        "8080",
		RequestTimeout:    30 * time.Second,
		JWTSecret:         testSecret,
		JWTAccessTTL:      15 * time.Minute,
		CORSOrigins:       []string{"*"},
		RateLimitRPM:      1000,
		WriteRateLimitRPM: 1000,
		EventsMaxDuration: time.Minute,
	}

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(tokens), router.Handlers{
		Collection: handler.NewCollectionHandler(collectionService),
		Config:     handler.NewConfigHandler(collectionService),
		Events:     handler.NewEventsHandler(bus, handler.EventsHeartbeat),
	}))
	t.Cleanup(server.Close)

	editor, err := tokens.IssueToken("integration-editor", "editor")
	require.NoError(t, err)
	admin, err := tokens.IssueToken("integration-admin", "admin")
	require.NoError(t, err)

	return server, editor.AccessToken, admin.AccessToken
}

func newAuthRequest(t *testing.T, method string, url string, body []byte, accessToken string) *http.Request {
	t.Helper()

	var payloadReader *bytes.Reader
	if body == nil {
		payloadReader = bytes.NewReader([]byte{})
	} else {
		payloadReader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, payloadReader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req
}

func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func doAuthJSONRequest(t *testing.T, method string, url string, body any, accessToken string) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return doRequest(t, newAuthRequest(t, method, url, payload, accessToken))
}

// decodeData decodes the data field of a success envelope into dst.
func decodeData(t *testing.T, resp *http.Response, dst any) {
	t.Helper()

	var parsed struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)
	require.NoError(t, json.Unmarshal(parsed.Data, dst))
}
