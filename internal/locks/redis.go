// Package locks provides the Redis-backed distributed locks used to
// serialize money-affecting sections across engine instances.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/creatorhub/settlement-engine/internal/interfaces"
)

type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (interfaces.Lock, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("obtain %s: %w", key, interfaces.ErrLockHeld)
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}
