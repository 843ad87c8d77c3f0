// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/vidshare/internal/platform/constants"
)

// # Attempt Limiter

// RedisAttemptLimiter implements [AttemptLimiter] with expiring counters.
type RedisAttemptLimiter struct {
	client redis.UniversalClient
}

// NewAttemptLimiter creates a new Redis-backed AttemptLimiter.
func NewAttemptLimiter(client redis.UniversalClient) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{client: client}
}

/*
Status reads the counter and its remaining TTL.

Parameters:
  - context: context.Context
  - key: string

Returns:
  - int: Current failure count
  - time.Duration: Time until the counter resets
  - error: Connectivity errors
*/
func (limiter *RedisAttemptLimiter) Status(context context.Context, key string) (int, time.Duration, error) {
	fullKey := constants.RedisPrefixAttempts + key

	pipe := limiter.client.Pipeline()
	countCmd := pipe.Get(context, fullKey)
	ttlCmd := pipe.TTL(context, fullKey)

	// A missing key surfaces as redis.Nil from GET; the pipeline still runs TTL
	if _, err := pipe.Exec(context); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("redis_attempt_limiter_status_failed: %w", err)
	}

	count, err := countCmd.Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("redis_attempt_limiter_status_failed: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return count, ttl, nil
}

/*
RegisterFailure increments the counter for key.

Description: INCR and EXPIRE NX run in one MULTI so the window is fixed by
the first failure. Once the count reaches maxAttempts the expiry is pushed
to the lockout duration.

Parameters:
  - context: context.Context
  - key: string
  - maxAttempts: int
  - window: time.Duration
  - lockout: time.Duration

Returns:
  - int: Count after the increment
  - error: Connectivity errors
*/
func (limiter *RedisAttemptLimiter) RegisterFailure(context context.Context, key string, maxAttempts int, window, lockout time.Duration) (int, error) {
	fullKey := constants.RedisPrefixAttempts + key

	var incr *redis.IntCmd
	_, err := limiter.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(context, fullKey)
		pipe.ExpireNX(context, fullKey, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis_attempt_limiter_incr_failed: %w", err)
	}

	count := int(incr.Val())
	if count >= maxAttempts {
		if err := limiter.client.Expire(context, fullKey, lockout).Err(); err != nil {
			return count, fmt.Errorf("redis_attempt_limiter_lock_failed: %w", err)
		}
	}

	return count, nil
}

// Reset deletes the counter for key.
func (limiter *RedisAttemptLimiter) Reset(context context.Context, key string) error {
	if err := limiter.client.Del(context, constants.RedisPrefixAttempts+key).Err(); err != nil {
		return fmt.Errorf("redis_attempt_limiter_reset_failed: %w", err)
	}
	return nil
}

// # Two-Factor Challenge Store

// RedisChallengeStore implements [ChallengeStore] with one TTL key per user.
type RedisChallengeStore struct {
	client redis.UniversalClient
}

// NewChallengeStore creates a new Redis-backed ChallengeStore.
func NewChallengeStore(client redis.UniversalClient) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

// Put opens a challenge that expires after ttl.
func (store *RedisChallengeStore) Put(context context.Context, userID string, ttl time.Duration) error {
	key := constants.RedisPrefixTwoFactorPending + userID

	if err := store.client.Set(context, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis_2fa_challenge_put_failed: %w", err)
	}
	return nil
}

// Exists reports whether the user has a pending challenge.
func (store *RedisChallengeStore) Exists(context context.Context, userID string) (bool, error) {
	key := constants.RedisPrefixTwoFactorPending + userID

	count, err := store.client.Exists(context, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis_2fa_challenge_exists_failed: %w", err)
	}
	return count == 1, nil
}

// Delete closes the challenge.
func (store *RedisChallengeStore) Delete(context context.Context, userID string) error {
	key := constants.RedisPrefixTwoFactorPending + userID

	if err := store.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_2fa_challenge_delete_failed: %w", err)
	}
	return nil
}
