package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reward-system/internal/status"

	"github.com/redis/go-redis/v9"
)

// ClaimLock holds a short per-(user, reward) Redis lock for the duration of
// one submit. It is a fast-path guard against double-submits; the storage
// constraints stay authoritative, so a Redis outage degrades to letting the
// submit through rather than failing it.
type ClaimLock struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewClaimLock(redisClient *redis.Client, ttl time.Duration) *ClaimLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ClaimLock{Redis: redisClient, TTL: ttl}
}

// Acquire takes the lock and returns its release func. It returns
// status.ErrClaimInFlight when another submit for the same pair holds it.
func (l *ClaimLock) Acquire(ctx context.Context, userID, rewardID string) (func(), error) {
	if l.Redis == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("claim:lock:%s:%s", userID, rewardID)

	ok, err := l.Redis.SetNX(ctx, key, time.Now().Unix(), l.TTL).Result()
	if err != nil {
		slog.Warn("claim lock unavailable, relying on storage constraints", "error", err)
		return func() {}, nil
	}

	if !ok {
		return nil, status.ErrClaimInFlight
	}

	return func() {
		if err := l.Redis.Del(context.Background(), key).Err(); err != nil {
			slog.Warn("claim lock release failed", "key", key, "error", err)
		}
	}, nil
}
