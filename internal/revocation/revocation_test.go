package revocation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set TEST_REDIS_ADDR (e.g. localhost:6379) to run against a real server.
func newTestRevoker(t *testing.T) *RedisRevoker {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	rdb, err := NewRedisClient(context.Background(), addr, os.Getenv("TEST_REDIS_PASSWORD"))
	require.NoError(t, err)

	r := New(rdb)
	t.Cleanup(func() {
		require.NoError(t, r.Close())
	})

	return r
}

func TestRevokeAndCheck(t *testing.T) {
	r := newTestRevoker(t)
	ctx := context.Background()
	tokenID := uuid.New().String()

	revoked, err := r.IsRevoked(ctx, tokenID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, tokenID, time.Minute))

	revoked, err = r.IsRevoked(ctx, tokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	// Revoking twice is harmless.
	require.NoError(t, r.Revoke(ctx, tokenID, time.Minute))
}

func TestRevocationExpires(t *testing.T) {
	r := newTestRevoker(t)
	ctx := context.Background()
	tokenID := uuid.New().String()

	require.NoError(t, r.Revoke(ctx, tokenID, 100*time.Millisecond))

	assert.Eventually(t, func() bool {
		revoked, err := r.IsRevoked(ctx, tokenID)
		return err == nil && !revoked
	}, 3*time.Second, 50*time.Millisecond)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, "127.0.0.1:1", "")
	assert.Error(t, err)
}
