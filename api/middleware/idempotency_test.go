package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
)

type memoryReplayStore struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryReplayStore() *memoryReplayStore {
	return &memoryReplayStore{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryReplayStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return "", m.failGet
	}
	v, ok := m.entries[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryReplayStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key], _ = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryReplayStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.entries[key]; taken {
		return false, nil
	}
	m.entries[key], _ = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryReplayStore) IdempotencyKey(scope, id string) string {
	return "test:idem:" + scope + ":" + id
}

func (m *memoryReplayStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
		delete(m.ttls, k)
	}
	return nil
}

func keyedPost(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req.WithContext(WithUserID(req.Context(), "user-1"))
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return payload.Error.Code
}

func TestReplayTTL(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/cocktails", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/cocktails/", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/cocktails/import/confirm", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/bottles/4f1c/empty", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/backup/import", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/bottles//empty", 0, false},
		{http.MethodPost, "/api/bottles/4f1c/empty/now", 0, false},
		{http.MethodPost, "/api/cocktails/import/preview", 0, false},
		{http.MethodPut, "/api/cocktails/4f1c", 0, false},
		{http.MethodPost, "/api/units", 0, false},
	}
	for _, tt := range tests {
		ttl, ok := replayTTL(tt.method, tt.path)
		if ok != tt.ok || ttl != tt.want {
			t.Fatalf("%s %s: got (%v, %v) want (%v, %v)", tt.method, tt.path, ttl, ok, tt.want, tt.ok)
		}
	}
}

func TestIdempotencyWithoutKeyRunsEveryTime(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, keyedPost("/api/cocktails", "", `{"name":"Daiquiri"}`))
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", resp.Code)
		}
	}
	if calls != 2 || len(store.entries) != 0 {
		t.Fatalf("expected 2 calls and nothing stored, got %d calls and %d entries", calls, len(store.entries))
	}
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"Daiquiri"}` {
			t.Errorf("handler saw body %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Debug", "not replayed")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"name":"Daiquiri"}}`))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedPost("/api/cocktails", "create-1", `{"name":"Daiquiri"}`))
	if first.Code != http.StatusCreated || first.Header().Get(replayedHeader) != "" {
		t.Fatalf("unexpected first response %d %v", first.Code, first.Header())
	}
	slot := store.IdempotencyKey("user:user-1", "create-1")
	if store.ttls[slot] != defaultIdempotencyTTL {
		t.Fatalf("expected stored ttl %v got %v", defaultIdempotencyTTL, store.ttls[slot])
	}

	again := httptest.NewRecorder()
	h.ServeHTTP(again, keyedPost("/api/cocktails", "create-1", `{"name":"Daiquiri"}`))
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
	if again.Code != http.StatusCreated || again.Body.String() != `{"data":{"name":"Daiquiri"}}` {
		t.Fatalf("unexpected replay %d %s", again.Code, again.Body.String())
	}
	if again.Header().Get(replayedHeader) != "true" || again.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected replay headers %v", again.Header())
	}
	if again.Header().Get("X-Debug") != "" {
		t.Fatalf("only listed headers should be replayed")
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), keyedPost("/api/users", "same", `{}`))
	other := keyedPost("/api/users", "same", `{}`)
	other = other.WithContext(WithUserID(other.Context(), "user-2"))
	h.ServeHTTP(httptest.NewRecorder(), other)
	if calls != 2 {
		t.Fatalf("expected each user to run once, got %d calls", calls)
	}
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newMemoryReplayStore()
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), keyedPost("/api/bottles/b1/empty", "empty-1", `{"note":"a"}`))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, keyedPost("/api/bottles/b1/empty", "empty-1", `{"note":"b"}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := errorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, code)
	}
}

func TestIdempotencySameKeyOnAnotherBottleConflicts(t *testing.T) {
	store := newMemoryReplayStore()
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), keyedPost("/api/bottles/b1/empty", "k", ``))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, keyedPost("/api/bottles/b2/empty", "k", ``))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestIdempotencyInFlightRetryConflicts(t *testing.T) {
	store := newMemoryReplayStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(httptest.NewRecorder(), keyedPost("/api/backup/import", "restore-1", "payload"))
	}()
	<-entered

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, keyedPost("/api/backup/import", "restore-1", "payload"))
	close(release)
	<-done

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 while first request runs, got %d", resp.Code)
	}
	slot := store.IdempotencyKey("user:user-1", "restore-1")
	if store.ttls[slot] != criticalIdempotencyTTL {
		t.Fatalf("expected restore ttl %v got %v", criticalIdempotencyTTL, store.ttls[slot])
	}
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), keyedPost("/api/backup/import", "restore-2", "payload"))
	}
	if calls != 2 {
		t.Fatalf("expected the retry to run, handler ran %d times", calls)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, keyedPost("/api/backup/import", "restore-2", "payload"))
	if calls != 2 || resp.Code != http.StatusCreated {
		t.Fatalf("expected stored 201 replay, got %d after %d calls", resp.Code, calls)
	}
}

func TestIdempotencyRejectsLongKey(t *testing.T) {
	h := Idempotency(newMemoryReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, keyedPost("/api/cocktails", strings.Repeat("k", maxIdempotencyKeyLen+1), `{}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIdempotencyStoreFailureIsDependencyError(t *testing.T) {
	store := newMemoryReplayStore()
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), keyedPost("/api/users", "u-1", `{}`))

	store.failGet = errors.New("redis down")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, keyedPost("/api/users", "u-1", `{}`))
	if code := errorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeDependency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeDependency, code)
	}
}
