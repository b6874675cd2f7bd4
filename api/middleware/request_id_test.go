package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/types"
)

func TestRequestIDReusesSafeHeader(t *testing.T) {
	var seen string
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/units", nil)
	req.Header.Set(requestIDHeader, "pos-terminal-3:0042")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "pos-terminal-3:0042" || rec.Header().Get(requestIDHeader) != seen {
		t.Fatalf("expected caller id, got ctx=%q header=%q", seen, rec.Header().Get(requestIDHeader))
	}
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, bad := range []string{"", "has space", "line\nbreak", strings.Repeat("a", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, bad)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		got := rec.Header().Get(requestIDHeader)
		if got == "" || got == bad {
			t.Fatalf("expected a minted id for %q, got %q", bad, got)
		}
	}
}

func TestRecovererWrites500WithRequestID(t *testing.T) {
	logg := logger.Nop()
	r := chi.NewRouter()
	r.Use(RequestID(logg), Recoverer(logg))
	r.Get("/api/cocktails/{id}", func(w http.ResponseWriter, r *http.Request) {
		panic("shaker dropped")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cocktails/123", nil)
	req.Header.Set(requestIDHeader, "req-boom")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.RequestID != "req-boom" {
		t.Fatalf("expected request id in envelope, got %q", body.Error.RequestID)
	}
	if strings.Contains(body.Error.Message, "shaker") {
		t.Fatalf("panic value leaked: %q", body.Error.Message)
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
