// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformredis "github.com/taibuivan/vidshare/internal/platform/redis"
)

func TestNewClient_PingsServer(t *testing.T) {
	server := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := platformredis.NewClient(context.Background(), "redis://"+server.Addr()+"/0", logger)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, platformredis.Ping(context.Background(), client))

	server.Close()
	assert.Error(t, platformredis.Ping(context.Background(), client))
}

func TestParseOptions(t *testing.T) {
	options, err := platformredis.ParseOptions("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, options.DB)
	assert.Equal(t, 10, options.PoolSize)

	_, err = platformredis.ParseOptions("http://not-redis")
	assert.Error(t, err)
}
