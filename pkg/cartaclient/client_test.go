package cartaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cartacocktail/carta-backend/internal/recipes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *MemoryTokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := NewMemoryTokenStore("")
	client, err := NewClient(srv.URL+"/api/", WithHTTPClient(srv.Client()), WithTokenStore(store))
	require.NoError(t, err)
	return client, store
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestLoginStoresTokenAndSendsBearer(t *testing.T) {
	var seenAuth string
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "bar@example.com", body["email"])
			writeData(w, http.StatusOK, map[string]any{
				"accessToken":  "tok-1",
				"refreshToken": "ref-1",
				"user":         map[string]any{"email": "bar@example.com", "role": "admin"},
			})
		case "/api/auth/me":
			seenAuth = r.Header.Get("Authorization")
			writeData(w, http.StatusOK, map[string]any{"email": "bar@example.com"})
		default:
			http.NotFound(w, r)
		}
	})

	user, err := client.Login(context.Background(), "bar@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "bar@example.com", user.Email)
	assert.Equal(t, "tok-1", store.Token())

	_, err = client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", seenAuth)
}

func TestUnauthorizedClearsToken(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":"UNAUTHORIZED","message":"token expired"}}`)
	})
	require.NoError(t, store.SetToken("stale"))

	_, err := client.Me(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Unauthorized", apiErr.Error())
	assert.Empty(t, store.Token())
}

func TestErrorMessageFromEnvelopeOrStatus(t *testing.T) {
	status := http.StatusConflict
	body := `{"error":{"code":"CONFLICT","message":"cocktail name already exists","details":{"name":"Mojito"}}}`
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})

	_, err := client.ConfirmImport(context.Background(), recipes.ConfirmRequest{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "cocktail name already exists", apiErr.Message)
	assert.Equal(t, "CONFLICT", apiErr.Code)

	status = http.StatusBadGateway
	body = `<html>upstream down</html>`
	_, err = client.PreviewImport(context.Background(), recipes.Document{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "HTTP 502", apiErr.Message)
}

func TestPreviewDecodesEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/cocktails/import/preview", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeData(w, http.StatusOK, map[string]any{
			"units":        []any{},
			"categories":   []any{},
			"bottles":      []any{map[string]any{"key": "havana 3", "status": "missing", "ref": map[string]any{"name": "Havana 3"}}},
			"ingredients":  []any{},
			"missingCount": 1,
		})
	})

	preview, err := client.PreviewImport(context.Background(), recipes.Document{Version: recipes.DocumentVersion})
	require.NoError(t, err)
	assert.Equal(t, 1, preview.MissingCount)
	require.Len(t, preview.Bottles, 1)
	assert.Equal(t, recipes.StatusMissing, preview.Bottles[0].Status)
}

func TestDownloadAndRestoreBackup(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/backup/export":
			w.Header().Set("Content-Disposition", `attachment; filename="carta-backup-20240131-224500.json"`)
			_, _ = io.WriteString(w, `{"version":1}`)
		case "/api/backup/import":
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "backup.json", header.Filename)
			writeData(w, http.StatusOK, map[string]int{"cocktails": 3})
		}
	})

	var buf bytes.Buffer
	name, err := client.DownloadBackup(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, "carta-backup-20240131-224500.json", name)
	assert.JSONEq(t, `{"version":1}`, buf.String())

	summary, err := client.RestoreBackup(context.Background(), "backup.json", &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, summary["cocktails"])
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	store, err := NewFileTokenStore(filepath.Join(t.TempDir(), "carta", "token"))
	require.NoError(t, err)
	assert.Empty(t, store.Token())

	require.NoError(t, store.SetToken("abc"))
	assert.Equal(t, "abc", store.Token())

	require.NoError(t, store.Clear())
	assert.Empty(t, store.Token())
	require.NoError(t, store.Clear())
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, errBaseURLRequired)
}
