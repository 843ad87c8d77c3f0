// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Authentication: Token lifetimes and lockout windows that are not configurable.
  - Redis Prefixes: Key taxonomy for ephemeral auth state.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "vidshare-api"
	AppVersion = "0.1.0-dev"

	// APIPrefix is the mount point of every versioned route.
	APIPrefix = "/api/v1"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// VerificationTokenTTL is the lifetime of an email verification link.
	VerificationTokenTTL = 1 * time.Hour

	// ResetTokenTTL is the lifetime of a password reset link.
	ResetTokenTTL = 1 * time.Hour

	// OpaqueTokenBytes is the entropy of verification and reset tokens (64 hex chars).
	OpaqueTokenBytes = 32

	// TwoFactorChallengeTTL bounds the gap between the password step and the code step.
	TwoFactorChallengeTTL = 5 * time.Minute

	// AccountDeletionGrace is how long a soft-deleted account can still be restored.
	AccountDeletionGrace = 30 * 24 * time.Hour

	// TokenTypeBearer is the token_type returned with every access token.
	TokenTypeBearer = "Bearer"
)

// # HTTP Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldSuccess = "success"
	FieldData    = "data"
	FieldCode    = "code"
	FieldErrors  = "errors"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaUsers  = "users"
	SchemaSystem = "system"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	// RedisPrefixAttempts namespaces keyed failure counters ("2fa_failed_attempts_{id}").
	RedisPrefixAttempts = "auth:attempts:"

	// RedisPrefixTwoFactorPending marks a user who passed the password step.
	RedisPrefixTwoFactorPending = "auth:2fa_pending:"
)
