package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/instance"
	"github.com/google/uuid"
)

// Lock keeps two maintenance workers from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a single-key SETNX lock. The value names the holder so a
// worker whose lease already expired cannot free a newer holder's lock.
type RedisLock struct {
	store lockStore
	key   string
	lease time.Duration
	token string
}

// NewRedisLock builds a lock on key. lease is how long a crashed worker
// blocks the others; it must outlast a full cycle.
func NewRedisLock(store lockStore, key string, lease time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	case lease <= 0:
		return nil, fmt.Errorf("lock lease must be positive, got %s", lease)
	}
	return &RedisLock{store: store, key: key, lease: lease}, nil
}

// Acquire reports false without error when another worker holds the lock.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := instance.ID() + "/" + uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.lease)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release is a no-op unless this lock still holds the key.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.DeleteIfEquals(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
