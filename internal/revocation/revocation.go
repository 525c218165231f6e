// Package revocation keeps the ids of logged-out session tokens in Redis so
// that a copied cookie stops working once its owner logs out.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:revoked:"

// RedisRevoker stores revoked token ids with a TTL equal to the token's
// remaining lifetime, so the list never outgrows the set of live tokens.
type RedisRevoker struct {
	rdb *redis.Client
}

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("in internal/revocation/revocation.go/NewRedisClient(): error while `rdb.Ping()` calling: %w", err)
	}
	return rdb, nil
}

func New(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb}
}

// Revoke marks tokenID as revoked for ttl.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.rdb.Set(ctx, keyPrefix+tokenID, 1, ttl).Err()
}

// IsRevoked reports whether tokenID has been revoked and not yet expired.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.rdb.Get(ctx, keyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisRevoker) Close() error {
	return r.rdb.Close()
}
