package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func preflight(h http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/cocktails", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	h := CORS([]string{" https://admin.carta.bar/ ", ""})(http.NotFoundHandler())

	resp := preflight(h, "https://admin.carta.bar")
	require.Equal(t, "https://admin.carta.bar", resp.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header().Get("Access-Control-Allow-Credentials"))

	resp = preflight(h, "https://evil.example")
	require.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	h := CORS([]string{"https://admin.carta.bar", "*"})(http.NotFoundHandler())

	resp := preflight(h, "https://menu.example")
	require.NotEmpty(t, resp.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, resp.Header().Get("Access-Control-Allow-Credentials"))
}
