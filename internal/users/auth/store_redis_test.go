// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidshare/internal/users/auth"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestAttemptLimiter_WindowAndLockout(t *testing.T) {
	server, client := newRedis(t)
	limiter := auth.NewAttemptLimiter(client)
	ctx := context.Background()

	count, ttl, err := limiter.Status(ctx, "key")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, ttl)

	count, err = limiter.RegisterFailure(ctx, "key", 3, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 15*time.Minute, server.TTL("auth:attempts:key"))

	// The window is anchored on the first failure.
	server.FastForward(5 * time.Minute)
	count, err = limiter.RegisterFailure(ctx, "key", 3, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 10*time.Minute, server.TTL("auth:attempts:key"))

	count, err = limiter.RegisterFailure(ctx, "key", 3, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, ttl, err = limiter.Status(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, time.Hour, ttl)

	server.FastForward(time.Hour)
	count, _, err = limiter.Status(ctx, "key")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAttemptLimiter_Reset(t *testing.T) {
	server, client := newRedis(t)
	limiter := auth.NewAttemptLimiter(client)
	ctx := context.Background()

	_, err := limiter.RegisterFailure(ctx, "key", 3, time.Minute, time.Hour)
	require.NoError(t, err)
	require.NoError(t, limiter.Reset(ctx, "key"))

	assert.False(t, server.Exists("auth:attempts:key"))
}

func TestChallengeStore_Lifecycle(t *testing.T) {
	server, client := newRedis(t)
	store := auth.NewChallengeStore(client)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Put(ctx, "user-1", 5*time.Minute))
	exists, err = store.Exists(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, server.Exists("auth:2fa_pending:user-1"))

	require.NoError(t, store.Delete(ctx, "user-1"))
	exists, err = store.Exists(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Put(ctx, "user-1", 5*time.Minute))
	server.FastForward(5 * time.Minute)
	exists, err = store.Exists(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStores_ReportConnectivityErrors(t *testing.T) {
	server, client := newRedis(t)
	server.Close()
	ctx := context.Background()

	_, _, err := auth.NewAttemptLimiter(client).Status(ctx, "key")
	assert.Error(t, err)

	_, err = auth.NewChallengeStore(client).Exists(ctx, "user-1")
	assert.Error(t, err)
}
