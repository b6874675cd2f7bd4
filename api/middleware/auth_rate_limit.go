package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cartacocktail/carta-backend/api/responses"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

// loginBodyPeek bounds how much of a credentials payload is buffered to find
// the account email.
const loginBodyPeek = 16 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// LoginThrottle caps credential attempts per client address and per account
// email inside a fixed window. A zero limit disables that counter.
type LoginThrottle struct {
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (t LoginThrottle) active() bool {
	return t.Window > 0 && (t.PerIP > 0 || t.PerEmail > 0)
}

type throttleHit struct {
	scope string
	value string
	count int64
	limit int
}

// Guard wraps the login handler. Counters live in the shared redis store so
// every API instance sees the same attempts.
func (t LoginThrottle) Guard(store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !t.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if t.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					hit, err := t.count(ctx, store, "ip", ip, t.PerIP)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle unavailable"))
						return
					}
					if hit != nil {
						t.reject(ctx, logg, w, *hit)
						return
					}
				}
			}

			if t.PerEmail > 0 && r.Body != nil {
				peek, err := io.ReadAll(io.LimitReader(r.Body, loginBodyPeek))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable login payload"))
					return
				}
				r.Body = struct {
					io.Reader
					io.Closer
				}{io.MultiReader(bytes.NewReader(peek), r.Body), r.Body}

				if email := loginEmail(peek); email != "" {
					hit, err := t.count(ctx, store, "email", digest(email), t.PerEmail)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle unavailable"))
						return
					}
					if hit != nil {
						t.reject(ctx, logg, w, *hit)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (t LoginThrottle) count(ctx context.Context, store rateLimiterStore, scope, value string, limit int) (*throttleHit, error) {
	n, err := store.IncrWithTTL(ctx, "carta:login:"+scope+":"+value, t.Window)
	if err != nil {
		return nil, err
	}
	if n <= int64(limit) {
		return nil, nil
	}
	return &throttleHit{scope: scope, value: value, count: n, limit: limit}, nil
}

func (t LoginThrottle) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, hit throttleHit) {
	if logg != nil {
		// email keys are digests, never the raw address
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"throttle_scope": hit.scope,
			"throttle_key":   hit.value,
			"attempts":       hit.count,
			"limit":          hit.limit,
			"window":         t.Window.String(),
		}), "login throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Round(time.Second)/time.Second)))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later"))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func loginEmail(payload []byte) string {
	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &creds) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(creds.Email))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
