package settlement

import (
	"context"
	"time"

	"github.com/osandoval-dev/storefront-backend/pkg/redis"
)

const lockScope = "settlement:sweep"

// SweepLock serializes sweeps across worker instances. A single instance is
// already sequential; the lock only matters when the worker is scaled out.
type SweepLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisSweepLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSweepLock builds a Redis-backed sweep lock. The TTL bounds how long a
// crashed worker can hold the lock.
func NewSweepLock(client *redis.Client, ttl time.Duration) SweepLock {
	return &redisSweepLock{client: client, ttl: ttl}
}

func (l *redisSweepLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.client.LockKey(lockScope), time.Now().UTC().Format(time.RFC3339), l.ttl)
}

func (l *redisSweepLock) Release(ctx context.Context) error {
	return l.client.Del(ctx, l.client.LockKey(lockScope))
}

// noopLock is used when no Redis is configured (single-instance deploys).
type noopLock struct{}

// NewNoopLock returns a lock that always grants.
func NewNoopLock() SweepLock { return noopLock{} }

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }
