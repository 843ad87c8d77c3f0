// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session, BackupCode) and logic for
authentication, two-factor enrollment, lockout, and account lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import (
	"time"

	"github.com/taibuivan/vidshare/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Vidshare platform.
//
// Credential material is tagged json:"-"; use [User.Profile] for transport.
type User struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Role     sec.UserRole `json:"role"`

	PasswordHash string `json:"-"`

	IsVerified            bool       `json:"is_verified"`
	VerificationTokenHash string     `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`

	TwoFAEnabled bool   `json:"two_fa_enabled"`
	TwoFASecret  string `json:"-"`

	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`

	ResetTokenHash string     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsDeleted reports whether the account is scheduled for deletion.
// Such accounts are treated as nonexistent for login and authentication.
func (user *User) IsDeleted() bool {
	return user.DeletedAt != nil
}

// IsLocked reports whether a login lockout is in force at now.
func (user *User) IsLocked(now time.Time) bool {
	return user.LockedUntil != nil && user.LockedUntil.After(now)
}

// # Two-Factor Enrollment

// EnrollmentState is the position of a user in the TOTP enrollment lifecycle.
type EnrollmentState string

const (
	// EnrollmentNotConfigured means no secret exists.
	EnrollmentNotConfigured EnrollmentState = "not_configured"

	// EnrollmentSecretIssued means a secret was shown but never confirmed with a code.
	EnrollmentSecretIssued EnrollmentState = "secret_issued"

	// EnrollmentEnabled means a confirming code was verified.
	EnrollmentEnabled EnrollmentState = "enabled"
)

// Enrollment derives the enrollment state from the stored flag and secret.
func (user *User) Enrollment() EnrollmentState {
	switch {
	case user.TwoFAEnabled:
		return EnrollmentEnabled
	case user.TwoFASecret != "":
		return EnrollmentSecretIssued
	default:
		return EnrollmentNotConfigured
	}
}

// # Transport Projections

// Profile is the sanitized view of a user returned to clients.
// It never includes the password hash, the 2FA secret or any one-time token.
type Profile struct {
	ID               string       `json:"id"`
	Username         string       `json:"username"`
	Email            string       `json:"email"`
	Role             sec.UserRole `json:"role"`
	EmailVerified    bool         `json:"email_verified"`
	TwoFactorEnabled bool         `json:"two_fa_enabled"`
	LastLoginAt      *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Profile returns the sanitized projection of user.
func (user *User) Profile() *Profile {
	return &Profile{
		ID:               user.ID,
		Username:         user.Username,
		Email:            user.Email,
		Role:             user.Role,
		EmailVerified:    user.IsVerified,
		TwoFactorEnabled: user.TwoFAEnabled,
		LastLoginAt:      user.LastLoginAt,
		CreatedAt:        user.CreatedAt,
	}
}

// Session represents one logged-in device, backed by a refresh token.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	TokenHash      string    `json:"-"` // SHA-256 of the refresh token. Omitted for security.
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsActive       bool      `json:"is_active"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsUsable reports whether the session is active and unexpired at now.
func (session *Session) IsUsable(now time.Time) bool {
	return session.IsActive && session.ExpiresAt.After(now)
}

// BackupCode is a one-time recovery credential; only its hash is stored.
type BackupCode struct {
	ID        string
	UserID    string
	CodeHash  string
	IsUsed    bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldToken           = "token"
	FieldCode            = "code"
	FieldUserID          = "user_id"
	FieldRefreshToken    = "refresh_token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldReason          = "reason"
)

// # Authentication Constraints

const (
	// maxEmailLength follows RFC 5321 path limits.
	maxEmailLength = 254

	// minPasswordLength is the shortest password any configured policy accepts.
	minPasswordLength = 6

	// maxReasonLength bounds the free-text account deletion reason.
	maxReasonLength = 500

	// twoFactorAttemptKeyPrefix is joined with the user ID to key 2FA failure counters.
	twoFactorAttemptKeyPrefix = "2fa_failed_attempts_"
)
