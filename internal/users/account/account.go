// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account exposes self-service views over the caller's own account.

It lets a signed-in user read their sanitized profile, see the devices that
hold a live session, sign a single device out and page through their own
security activity.

# Architecture

  - Entities: SessionInfo (DTO). The User entity is owned by the auth package
    and activity entries are audit events.
  - Security: every operation is scoped to the authenticated user ID.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/vidshare/internal/users/auth"
	"github.com/taibuivan/vidshare/pkg/pagination"
)

// Field identifiers reported in validation errors.
const (
	FieldSessionID = "session_id"
	FieldEventType = "type"
)

// # Domain Entities

// SessionInfo is the transport view of a session. It never carries token material.
type SessionInfo struct {
	ID             string    `json:"id"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsCurrent      bool      `json:"is_current"` // True for the session of the current request
}

// ActivityQuery selects a page of the caller's audit history.
type ActivityQuery struct {
	Types []string // Event types to include; empty means all
	Page  pagination.Params
}

// # Repository Contracts

// ProfileRepository loads account records. [auth.PostgresUserRepository] satisfies it.
type ProfileRepository interface {
	FindByID(context context.Context, id string) (*auth.User, error)
}

// SessionRepository defines the visibility and revocation contract for user sessions.
type SessionRepository interface {
	/*
		FindActiveByUserID lists the sessions of a user that are active and unexpired at now.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - now: time.Time

		Returns:
		  - []auth.Session: Newest first
		  - error: Retrieval errors
	*/
	FindActiveByUserID(context context.Context, userID string, now time.Time) ([]auth.Session, error)

	/*
		Revoke deactivates one session, provided it belongs to userID.

		Parameters:
		  - context: context.Context
		  - userID: string (Security constraint: owner validation)
		  - sessionID: string

		Returns:
		  - bool: False when nothing matched (unknown, foreign or already revoked)
		  - error: Revocation failures
	*/
	Revoke(context context.Context, userID, sessionID string) (bool, error)
}
