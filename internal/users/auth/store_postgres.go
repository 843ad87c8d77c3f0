// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/dberr"
	"github.com/taibuivan/vidshare/internal/platform/postgres"
	"github.com/taibuivan/vidshare/pkg/uuid"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] on users.account.
type PostgresUserRepository struct {
	db postgres.Querier
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db postgres.Querier) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// userColumns is the projection scanned by [scanUser]. Nullable text columns
// are coalesced so they scan into plain strings.
const userColumns = `
	id, username, email, passwordhash, role,
	isverified, COALESCE(verificationtokenhash, ''), verificationexpiresat,
	twofaenabled, COALESCE(twofasecret, ''),
	failedloginattempts, lockeduntil,
	COALESCE(resettokenhash, ''), resetexpiresat,
	lastloginat, deletedat, createdat, updatedat`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsVerified,
		&user.VerificationTokenHash,
		&user.VerificationExpiresAt,
		&user.TwoFAEnabled,
		&user.TwoFASecret,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.ResetTokenHash,
		&user.ResetExpiresAt,
		&user.LastLoginAt,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (repository *PostgresUserRepository) findOne(context context.Context, action, where string, argument any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE ` + where

	user, err := scanUser(repository.db.QueryRow(context, query, argument))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_%s_failed: %w", action, err)
	}

	return user, nil
}

// FindByID retrieves an account by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, "find_by_id", `id = $1`, id)
}

// FindByEmail retrieves an account by email, ignoring case.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, "find_by_email", `LOWER(email) = LOWER($1)`, email)
}

// FindByUsername retrieves an account by username, ignoring case.
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findOne(context, "find_by_username", `LOWER(username) = LOWER($1)`, username)
}

// FindByVerificationTokenHash retrieves the account owning a verification token.
func (repository *PostgresUserRepository) FindByVerificationTokenHash(context context.Context, tokenHash string) (*User, error) {
	return repository.findOne(context, "find_by_verification_token", `verificationtokenhash = $1`, tokenHash)
}

// FindByResetTokenHash retrieves the account owning a password reset token.
func (repository *PostgresUserRepository) FindByResetTokenHash(context context.Context, tokenHash string) (*User, error) {
	return repository.findOne(context, "find_by_reset_token", `resettokenhash = $1`, tokenHash)
}

/*
Create persists a new user record into the users.account table.

Description: Initializes timestamps when unset. Unique index violations on
email or username are mapped to a Conflict naming the field.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, username, email, passwordhash, role, isverified,
			verificationtokenhash, verificationexpiresat, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.db.Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsVerified,
		user.VerificationTokenHash,
		user.VerificationExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	switch {
	case err == nil:
		return nil
	case dberr.IsUniqueViolation(err, "account_email_lower_key"):
		return apperr.Conflict("Email already registered").WithCause(err)
	case dberr.IsUniqueViolation(err, "account_username_lower_key"):
		return apperr.Conflict("Username already taken").WithCause(err)
	default:
		return dberr.Wrap(err, "postgres_user_repo_create_failed")
	}
}

/*
RegisterFailedLogin increments failedloginattempts in a single statement.

Description: The CASE sets lockeduntil in the same UPDATE that crosses the
threshold, so concurrent failures can never skip the lock. The counter
restarts from 1 once a previous lock has expired.

Parameters:
  - context: context.Context
  - userID: string
  - maxAttempts: int
  - lockUntil: time.Time

Returns:
  - LoginFailure: Counter and newly set lock
  - error: Database errors
*/
func (repository *PostgresUserRepository) RegisterFailedLogin(context context.Context, userID string, maxAttempts int, lockUntil time.Time) (LoginFailure, error) {
	const query = `
		WITH bumped AS (
			SELECT id,
				CASE WHEN lockeduntil IS NOT NULL AND lockeduntil <= NOW()
					THEN 1 ELSE failedloginattempts + 1 END AS attempts
			FROM users.account
			WHERE id = $1
			FOR UPDATE
		)
		UPDATE users.account AS account
		SET failedloginattempts = bumped.attempts,
			lockeduntil = CASE
				WHEN bumped.attempts >= $2 THEN $3
				WHEN account.lockeduntil IS NOT NULL AND account.lockeduntil <= NOW() THEN NULL
				ELSE account.lockeduntil END,
			updatedat = NOW()
		FROM bumped
		WHERE account.id = bumped.id
		RETURNING account.failedloginattempts, bumped.attempts >= $2`

	var (
		failure LoginFailure
		locked  bool
	)
	err := repository.db.QueryRow(context, query, userID, maxAttempts, lockUntil).Scan(&failure.Attempts, &locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginFailure{}, apperr.NotFound("User")
		}
		return LoginFailure{}, fmt.Errorf("postgres_user_repo_register_failed_login_failed: %w", err)
	}

	if locked {
		failure.LockedUntil = &lockUntil
	}
	return failure, nil
}

// RecordSuccessfulLogin resets the lockout state and stamps lastloginat.
func (repository *PostgresUserRepository) RecordSuccessfulLogin(context context.Context, userID string, at time.Time) error {
	const query = `
		UPDATE users.account
		SET failedloginattempts = 0, lockeduntil = NULL, lastloginat = $2, updatedat = NOW()
		WHERE id = $1`

	return repository.exec(context, "record_login", query, userID, at)
}

// SetVerificationToken replaces the pending verification token.
func (repository *PostgresUserRepository) SetVerificationToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users.account
		SET verificationtokenhash = $2, verificationexpiresat = $3, updatedat = NOW()
		WHERE id = $1`

	return repository.exec(context, "set_verification_token", query, userID, tokenHash, expiresAt)
}

// MarkVerified flags the email as verified and consumes the token.
func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET isverified = TRUE, verificationtokenhash = NULL, verificationexpiresat = NULL, updatedat = NOW()
		WHERE id = $1`

	return repository.exec(context, "mark_verified", query, userID)
}

// SetResetToken replaces the pending password reset token.
func (repository *PostgresUserRepository) SetResetToken(context context.Context, userID, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users.account
		SET resettokenhash = $2, resetexpiresat = $3, updatedat = NOW()
		WHERE id = $1`

	return repository.exec(context, "set_reset_token", query, userID, tokenHash, expiresAt)
}

// ClearResetToken discards the pending password reset token.
func (repository *PostgresUserRepository) ClearResetToken(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET resettokenhash = NULL, resetexpiresat = NULL, updatedat = NOW()
		WHERE id = $1`

	return repository.exec(context, "clear_reset_token", query, userID)
}

// UpdatePassword stores a new hash and consumes any reset token.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, resettokenhash = NULL, resetexpiresat = NULL, updatedat = NOW()
		WHERE id = $1`

	return repository.exec(context, "update_password", query, userID, newHash)
}

// SetTwoFactorSecret stores an unconfirmed TOTP secret.
func (repository *PostgresUserRepository) SetTwoFactorSecret(context context.Context, userID, secret string) error {
	const query = `
		UPDATE users.account
		SET twofasecret = $2, twofaenabled = FALSE, updatedat = NOW()
		WHERE id = $1`

	return repository.exec(context, "set_2fa_secret", query, userID, secret)
}

// EnableTwoFactor confirms the stored TOTP secret.
func (repository *PostgresUserRepository) EnableTwoFactor(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET twofaenabled = TRUE, updatedat = NOW()
		WHERE id = $1 AND twofasecret IS NOT NULL`

	return repository.exec(context, "enable_2fa", query, userID)
}

// DisableTwoFactor removes the flag and the secret.
func (repository *PostgresUserRepository) DisableTwoFactor(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET twofaenabled = FALSE, twofasecret = NULL, updatedat = NOW()
		WHERE id = $1`

	return repository.exec(context, "disable_2fa", query, userID)
}

// SoftDelete stamps deletedat, keeping the row for the restore window.
func (repository *PostgresUserRepository) SoftDelete(context context.Context, userID string, at time.Time) error {
	const query = `
		UPDATE users.account
		SET deletedat = $2, updatedat = NOW()
		WHERE id = $1 AND deletedat IS NULL`

	return repository.exec(context, "soft_delete", query, userID, at)
}

func (repository *PostgresUserRepository) exec(context context.Context, action, query string, arguments ...any) error {
	if _, err := repository.db.Exec(context, query, arguments...); err != nil {
		return fmt.Errorf("postgres_user_repo_%s_failed: %w", action, err)
	}
	return nil
}

// # Session Repository

// PostgresSessionRepository implements [SessionRepository] on users.session.
type PostgresSessionRepository struct {
	db postgres.Querier
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(db postgres.Querier) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

const sessionColumns = `id, userid, tokenhash, ipaddress, useragent, expiresat, isactive, lastactivityat, createdat`

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.ExpiresAt,
		&session.IsActive,
		&session.LastActivityAt,
		&session.CreatedAt,
	)
	return session, err
}

/*
Create inserts a new session record.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Database errors (e.g., duplicate token hash)
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := repository.db.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
		session.IsActive,
		session.LastActivityAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

// FindByID retrieves a session by primary key.
func (repository *PostgresSessionRepository) FindByID(context context.Context, sessionID string) (*Session, error) {
	return repository.findOne(context, "find_by_id", `id = $1`, sessionID)
}

// FindByTokenHash retrieves a session by its refresh token hash.
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	return repository.findOne(context, "find_by_token", `tokenhash = $1`, tokenHash)
}

func (repository *PostgresSessionRepository) findOne(context context.Context, action, where string, argument any) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM users.session WHERE ` + where

	session, err := scanSession(repository.db.QueryRow(context, query, argument))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_repo_%s_failed: %w", action, err)
	}

	return session, nil
}

// Touch bumps lastactivityat.
func (repository *PostgresSessionRepository) Touch(context context.Context, sessionID string, at time.Time) error {
	const query = `UPDATE users.session SET lastactivityat = $2 WHERE id = $1`

	if _, err := repository.db.Exec(context, query, sessionID, at); err != nil {
		return fmt.Errorf("postgres_session_repo_touch_failed: %w", err)
	}
	return nil
}

// RevokeAll deactivates every active session of the user.
func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) (int64, error) {
	const query = `UPDATE users.session SET isactive = FALSE WHERE userid = $1 AND isactive`

	tag, err := repository.db.Exec(context, query, userID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_revoke_all_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RevokeOthers deactivates every active session of the user except keepSessionID.
func (repository *PostgresSessionRepository) RevokeOthers(context context.Context, userID, keepSessionID string) (int64, error) {
	const query = `UPDATE users.session SET isactive = FALSE WHERE userid = $1 AND isactive AND id::text <> $2`

	tag, err := repository.db.Exec(context, query, userID, keepSessionID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_revoke_others_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// # Backup Code Repository

// PostgresBackupCodeRepository implements [BackupCodeRepository] on users.backupcode.
type PostgresBackupCodeRepository struct {
	pool *pgxpool.Pool
}

// NewBackupCodeRepository creates a new PostgreSQL implementation of the BackupCodeRepository.
func NewBackupCodeRepository(pool *pgxpool.Pool) *PostgresBackupCodeRepository {
	return &PostgresBackupCodeRepository{pool: pool}
}

/*
ReplaceAll swaps the user's backup codes inside one transaction.

Description: Readers never observe a mix of old and new codes; a failure
midway keeps the previous batch.

Parameters:
  - context: context.Context
  - userID: string
  - codeHashes: []string

Returns:
  - error: Transaction or database errors
*/
func (repository *PostgresBackupCodeRepository) ReplaceAll(context context.Context, userID string, codeHashes []string) error {
	return postgres.WithTx(context, repository.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(context, `DELETE FROM users.backupcode WHERE userid = $1`, userID); err != nil {
			return fmt.Errorf("postgres_backup_code_repo_delete_failed: %w", err)
		}

		now := time.Now().UTC()
		batch := &pgx.Batch{}
		for _, hash := range codeHashes {
			batch.Queue(
				`INSERT INTO users.backupcode (id, userid, codehash, isused, createdat) VALUES ($1, $2, $3, FALSE, $4)`,
				uuid.New(), userID, hash, now,
			)
		}

		if err := tx.SendBatch(context, batch).Close(); err != nil {
			return fmt.Errorf("postgres_backup_code_repo_insert_failed: %w", err)
		}
		return nil
	})
}

// FindUnused lists codes that have not been consumed.
func (repository *PostgresBackupCodeRepository) FindUnused(context context.Context, userID string) ([]BackupCode, error) {
	const query = `
		SELECT id, userid, codehash, isused, usedat, createdat
		FROM users.backupcode
		WHERE userid = $1 AND NOT isused
		ORDER BY createdat`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_backup_code_repo_find_unused_failed: %w", err)
	}

	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (BackupCode, error) {
		var code BackupCode
		err := row.Scan(&code.ID, &code.UserID, &code.CodeHash, &code.IsUsed, &code.UsedAt, &code.CreatedAt)
		return code, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres_backup_code_repo_scan_failed: %w", err)
	}

	return codes, nil
}

// MarkUsed consumes a code; the isused guard makes the transition happen once.
func (repository *PostgresBackupCodeRepository) MarkUsed(context context.Context, codeID string, at time.Time) (bool, error) {
	const query = `UPDATE users.backupcode SET isused = TRUE, usedat = $2 WHERE id = $1 AND NOT isused`

	tag, err := repository.pool.Exec(context, query, codeID, at)
	if err != nil {
		return false, fmt.Errorf("postgres_backup_code_repo_mark_used_failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteAll removes every code of the user.
func (repository *PostgresBackupCodeRepository) DeleteAll(context context.Context, userID string) error {
	if _, err := repository.pool.Exec(context, `DELETE FROM users.backupcode WHERE userid = $1`, userID); err != nil {
		return fmt.Errorf("postgres_backup_code_repo_delete_all_failed: %w", err)
	}
	return nil
}
