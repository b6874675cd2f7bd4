package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/config"
	redisclient "github.com/cartacocktail/carta-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs to reject revoked
// access tokens.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager keeps one Redis entry per live login, keyed by the access token's
// jti. The entry holds the owner and a digest of the refresh token; the token
// itself is only ever known to the client.
type Manager struct {
	store sessionStore
	ttl   time.Duration
	now   func() time.Time
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

type record struct {
	UserID        uuid.UUID `json:"uid"`
	RefreshDigest string    `json:"rt"`
	IssuedAt      int64     `json:"iat"`
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return newManager(client, ttl), nil
}

func newManager(store sessionStore, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// Generate opens a session for userID under accessID and returns the refresh
// token to hand to the client.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errors.New("access id is required")
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.save(ctx, accessID, userID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate trades a refresh token for a new session. The old session is claimed
// with a compare-and-delete, so when two refreshes race with the same token
// only one of them gets a new session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (*Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return nil, ErrInvalidRefreshToken
	}
	oldKey := m.store.AccessSessionKey(oldAccessID)
	raw, err := m.store.Get(ctx, oldKey)
	if errors.Is(err, redislib.Nil) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	current, ok := decodeRecord(raw)
	if !ok || subtle.ConstantTimeCompare([]byte(current.RefreshDigest), []byte(digest(provided))) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	next := &Rotation{UserID: current.UserID, AccessID: NewAccessID()}
	if next.RefreshToken, err = newRefreshToken(); err != nil {
		return nil, err
	}
	if err := m.save(ctx, next.AccessID, next.UserID, next.RefreshToken); err != nil {
		return nil, err
	}
	claimed, err := m.store.DeleteIfEquals(ctx, oldKey, raw)
	if err == nil && claimed {
		return next, nil
	}
	_ = m.store.Del(context.WithoutCancel(ctx), m.store.AccessSessionKey(next.AccessID))
	if err != nil {
		return nil, fmt.Errorf("claim session: %w", err)
	}
	return nil, ErrInvalidRefreshToken
}

// Revoke ends the session; its access token stops working immediately.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errors.New("access id is required")
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// NewAccessID returns a fresh jti for an access token.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) save(ctx context.Context, accessID string, userID uuid.UUID, token string) error {
	payload, err := json.Marshal(record{UserID: userID, RefreshDigest: digest(token), IssuedAt: m.now().Unix()})
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func decodeRecord(raw string) (record, bool) {
	var r record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return record{}, false
	}
	return r, r.UserID != uuid.Nil && r.RefreshDigest != ""
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
