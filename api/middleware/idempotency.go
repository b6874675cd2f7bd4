package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/cartacocktail/carta-backend/api/responses"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	pkgredis "github.com/cartacocktail/carta-backend/pkg/redis"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	// claim held while the first request runs; a crashed handler frees it
	inflightTTL  = 2 * time.Minute
	inflightMark = "inflight"
)

// replayable lists the writes that accept an Idempotency-Key. Templates
// match request paths segment by segment; {name} matches any segment.
var replayable = []struct {
	method   string
	template string
	ttl      time.Duration
}{
	{http.MethodPost, "/api/cocktails", defaultIdempotencyTTL},
	{http.MethodPost, "/api/cocktails/import/confirm", defaultIdempotencyTTL},
	{http.MethodPost, "/api/bottles/{id}/empty", defaultIdempotencyTTL},
	{http.MethodPost, "/api/users", defaultIdempotencyTTL},
	// a replayed restore must not wipe data entered after the first one
	{http.MethodPost, "/api/backup/import", criticalIdempotencyTTL},
}

var replayedHeaders = []string{"Content-Type", "Content-Disposition", "Location"}

type storedResponse struct {
	Status      int               `json:"status"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        []byte            `json:"body,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	StoredAt    time.Time         `json:"stored_at"`
}

// Idempotency makes the listed writes safe to retry. The first request with
// a given Idempotency-Key claims it, runs, and leaves its response behind;
// retries with the same body get that response back with Idempotent-Replayed
// set. Retries that arrive while the first is still running get a conflict.
// 5xx responses release the key so the client can try again.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := replayTTL(r.Method, r.URL.Path)
			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !ok || key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(key) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long").
					WithDetails(map[string]any{"max": maxIdempotencyKeyLen}))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := fingerprintOf(r.Method, r.URL.Path, body)
			slot := store.IdempotencyKey(replayScope(r), key)

			claimed, err := store.SetNX(ctx, slot, inflightMark, inflightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(w, r, store, slot, fingerprint, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// the claim must be settled even if the client went away
			settleCtx := context.WithoutCancel(ctx)
			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				if err := store.Del(settleCtx, slot); err != nil && logg != nil {
					logg.Error(settleCtx, "release idempotency key", err)
				}
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      status,
				Headers:     pickHeaders(capture.Header()),
				Body:        capture.body.Bytes(),
				Fingerprint: fingerprint,
				StoredAt:    time.Now().UTC(),
			})
			if err == nil {
				err = store.Set(settleCtx, slot, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(settleCtx, "store idempotent response", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, slot, fingerprint string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, slot)
	switch {
	case errors.Is(err, redis.Nil), err == nil && raw == inflightMark:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this Idempotency-Key is still in progress"))
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotent response"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent response"))
		return
	}
	if stored.Fingerprint != fingerprint {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key was already used with a different request body"))
		return
	}
	for name, value := range stored.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// replayScope keeps one user's keys from colliding with another's.
func replayScope(r *http.Request) string {
	user := UserIDFromContext(r.Context())
	if user == "" {
		user = "anonymous"
	}
	return "user:" + user
}

func fingerprintOf(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func pickHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(replayedHeaders))
	for _, name := range replayedHeaders {
		if v := h.Get(name); v != "" {
			out[name] = v
		}
	}
	return out
}

func replayTTL(method, path string) (time.Duration, bool) {
	for _, rule := range replayable {
		if rule.method == method && matchTemplate(rule.template, path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func matchTemplate(template, path string) bool {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	want := strings.Split(template, "/")
	got := strings.Split(path, "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

// routePattern returns the chi pattern once routing has resolved it, or the
// raw path before that.
func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
