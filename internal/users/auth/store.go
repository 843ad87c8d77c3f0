// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Finders return soft-deleted rows too; callers decide how to treat them.
// A missing row is reported as an apperr NOT_FOUND error.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email, compared case-insensitively.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username, compared case-insensitively.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByVerificationTokenHash returns the account holding the given verification token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string (SHA-256 hex)

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByVerificationTokenHash(context context.Context, tokenHash string) (*User, error)

	/*
		FindByResetTokenHash returns the account holding the given password reset token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string (SHA-256 hex)

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByResetTokenHash(context context.Context, tokenHash string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on duplicate email/username, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		RegisterFailedLogin atomically increments the failed-login counter and,
		when it reaches maxAttempts, sets the lock expiry to lockUntil.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - maxAttempts: int
		  - lockUntil: time.Time

		Returns:
		  - LoginFailure: Counter value after the increment and the lock, if now set
		  - error: Persistence failures
	*/
	RegisterFailedLogin(context context.Context, userID string, maxAttempts int, lockUntil time.Time) (LoginFailure, error)

	/*
		RecordSuccessfulLogin clears the failed-login counter and lock and stamps lastloginat.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	RecordSuccessfulLogin(context context.Context, userID string, at time.Time) error

	/*
		SetVerificationToken stores a new verification token hash and its expiry.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetVerificationToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error

	/*
		MarkVerified sets isverified = true and clears the verification token.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, userID string) error

	/*
		SetResetToken stores a new password reset token hash and its expiry.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetResetToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error

	/*
		ClearResetToken removes any pending password reset token.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	ClearResetToken(context context.Context, userID string) error

	/*
		UpdatePassword replaces the password hash and clears any pending reset token.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		SetTwoFactorSecret stores an unconfirmed TOTP secret (twofaenabled stays false).

		Parameters:
		  - context: context.Context
		  - userID: string
		  - secret: string (base32)

		Returns:
		  - error: Persistence failures
	*/
	SetTwoFactorSecret(context context.Context, userID, secret string) error

	/*
		EnableTwoFactor sets twofaenabled = true for an account holding a secret.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	EnableTwoFactor(context context.Context, userID string) error

	/*
		DisableTwoFactor clears both the flag and the secret.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	DisableTwoFactor(context context.Context, userID string) error

	/*
		SoftDelete marks the account as deleted without removing the row.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SoftDelete(context context.Context, userID string, at time.Time) error
}

// LoginFailure is the outcome of an atomic failed-login increment.
type LoginFailure struct {
	Attempts    int
	LockedUntil *time.Time // Non-nil only when this failure triggered the lock.
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token sessions.
type SessionRepository interface {

	/*
		Create persists a new tracking session for an authenticated login.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByID returns the session with the given ID, active or not.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, sessionID string) (*Session, error)

	/*
		FindByTokenHash returns the session matching the given refresh token hash, active or not.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		Touch updates the last-activity timestamp of a session.

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	Touch(context context.Context, sessionID string, at time.Time) error

	/*
		RevokeAll deactivates every active session belonging to the userID in one statement.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - int64: Number of sessions revoked
		  - error: Persistence failures
	*/
	RevokeAll(context context.Context, userID string) (int64, error)

	/*
		RevokeOthers deactivates all sessions of the userID except keepSessionID.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - keepSessionID: string

		Returns:
		  - int64: Number of sessions revoked
		  - error: Persistence failures
	*/
	RevokeOthers(context context.Context, userID, keepSessionID string) (int64, error)
}

// # Backup Code Data Access

// BackupCodeRepository defines the data access contract for 2FA recovery codes.
type BackupCodeRepository interface {

	/*
		ReplaceAll atomically deletes every code of the user and inserts a fresh batch.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - codeHashes: []string (SHA-256 hex of the normalized codes)

		Returns:
		  - error: Persistence failures
	*/
	ReplaceAll(context context.Context, userID string, codeHashes []string) error

	/*
		FindUnused lists the user's codes that were never consumed.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []BackupCode: Unused codes
		  - error: Retrieval failures
	*/
	FindUnused(context context.Context, userID string) ([]BackupCode, error)

	/*
		MarkUsed consumes a code. It only succeeds once per code, even under concurrency.

		Parameters:
		  - context: context.Context
		  - codeID: string
		  - at: time.Time

		Returns:
		  - bool: false if the code was already used
		  - error: Persistence failures
	*/
	MarkUsed(context context.Context, codeID string, at time.Time) (bool, error)

	/*
		DeleteAll removes every code of the user.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteAll(context context.Context, userID string) error
}

// # Volatile Data Access

// AttemptLimiter counts failures per key inside an expiring window.
type AttemptLimiter interface {

	/*
		Status returns the failure count for key and how long until it resets.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - int: Current count (0 when absent)
		  - time.Duration: Remaining window
		  - error: Connectivity failures
	*/
	Status(context context.Context, key string) (int, time.Duration, error)

	/*
		RegisterFailure atomically increments the counter. The window starts at
		the first failure; reaching maxAttempts extends the expiry to lockout.

		Parameters:
		  - context: context.Context
		  - key: string
		  - maxAttempts: int
		  - window: time.Duration
		  - lockout: time.Duration

		Returns:
		  - int: Count after the increment
		  - error: Connectivity failures
	*/
	RegisterFailure(context context.Context, key string, maxAttempts int, window, lockout time.Duration) (int, error)

	/*
		Reset deletes the counter for key.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - error: Connectivity failures
	*/
	Reset(context context.Context, key string) error
}

// ChallengeStore remembers users who passed the password step of a 2FA login.
type ChallengeStore interface {

	/*
		Put opens a challenge for userID that expires after ttl.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - ttl: time.Duration

		Returns:
		  - error: Connectivity failures
	*/
	Put(context context.Context, userID string, ttl time.Duration) error

	/*
		Exists reports whether userID has an open challenge.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - bool: true if a challenge is pending
		  - error: Connectivity failures
	*/
	Exists(context context.Context, userID string) (bool, error)

	/*
		Delete closes the challenge of userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Connectivity failures
	*/
	Delete(context context.Context, userID string) error
}
