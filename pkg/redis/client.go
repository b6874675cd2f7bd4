package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "carta"

var errNotConnected = errors.New("redis client not initialized")

// incrWindow bumps a counter and starts its expiry on the first hit, in one
// round trip so a crash between INCR and PEXPIRE cannot leave a counter
// without a TTL.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n`)

var deleteIfEquals = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0`)

// Client is the shared redis handle for sessions, idempotent replays, login
// throttling and the worker lock.
type Client struct {
	rdb *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore exposes minimal operations used by idempotency helpers.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New dials redis from config and fails fast when the server is unreachable.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"redis_addr": opts.Addr,
			"redis_db":   opts.DB,
			"pool_size":  opts.PoolSize,
		}), "redis connection established")
	}
	return &Client{rdb: rdb}, nil
}

// NewFromRaw wraps an existing go-redis client, e.g. one pointed at miniredis in tests.
func NewFromRaw(raw *redis.Client) *Client {
	return &Client{rdb: raw}
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}
	opts.PoolSize = firstPositive(opts.PoolSize, cfg.PoolSize)
	opts.MinIdleConns = firstPositive(opts.MinIdleConns, cfg.MinIdleConns)
	opts.DialTimeout = firstPositive(opts.DialTimeout, cfg.DialTimeout)
	opts.ReadTimeout = firstPositive(opts.ReadTimeout, cfg.ReadTimeout)
	opts.WriteTimeout = firstPositive(opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func firstPositive[T int | time.Duration](fromURL, fromEnv T) T {
	if fromURL > 0 {
		return fromURL
	}
	return fromEnv
}

func (c *Client) ready() error {
	if c == nil || c.rdb == nil {
		return errNotConnected
	}
	return nil
}

// Set stores value under key; a zero ttl keeps it forever.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil when key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.rdb.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// IncrWithTTL increments key and arms ttl when the counter is created.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return incrWindow.Run(ctx, c.rdb, []string{key}, ttl.Milliseconds()).Int64()
}

// DeleteIfEquals removes key only while it still holds value and reports
// whether it did.
func (c *Client) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	n, err := deleteIfEquals.Run(ctx, c.rdb, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.rdb.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// IdempotencyKey is carta:idempotency:<scope>:<id>.
func (c *Client) IdempotencyKey(scope, id string) string {
	return key("idempotency", scope, id)
}

// AccessSessionKey is carta:session:access:<jti>.
func (c *Client) AccessSessionKey(accessID string) string {
	return key("session", "access", accessID)
}

// LockKey is carta:lock:<name>.
func (c *Client) LockKey(name string) string {
	return key("lock", name)
}

func key(parts ...string) string {
	out := make([]string, 0, len(parts)+1)
	out = append(out, keyNamespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}
