// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/constants"
	"github.com/taibuivan/vidshare/internal/platform/sec"
)

// AccessVerifier validates access tokens. [sec.TokenService] satisfies it.
type AccessVerifier interface {
	VerifyAccessToken(token string) (*sec.AccessClaims, error)
}

// Authenticator is the single path that turns a bearer token into a
// [sec.Identity]. It satisfies [middleware.Authenticator].
type Authenticator struct {
	tokens   AccessVerifier
	users    UserRepository
	sessions SessionRepository
	now      func() time.Time
}

// NewAuthenticator constructs an [Authenticator].
func NewAuthenticator(tokens AccessVerifier, users UserRepository, sessions SessionRepository) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, sessions: sessions, now: time.Now}
}

// WithClock replaces the time source used for session expiry, for tests.
func (authenticator *Authenticator) WithClock(now func() time.Time) *Authenticator {
	authenticator.now = now
	return authenticator
}

/*
Authenticate resolves the caller behind an Authorization header value.

Flow:
 1. Empty header: anonymous, (nil, nil).
 2. The token must be a valid access token.
 3. The user is re-read; a missing or deleted account is anonymous.
 4. The bound session must exist, be usable and belong to the subject.
 5. The identity is built from the current row, not the token claims.

A rejected credential resolves to anonymous. Routes that need a caller
refuse it through the guards, so public routes stay reachable with a
stale token.

Parameters:
  - context: context.Context
  - authorizationHeader: string

Returns:
  - *sec.Identity: Caller, or nil for anonymous requests
  - error: Storage errors only
*/
func (authenticator *Authenticator) Authenticate(context context.Context, authorizationHeader string) (*sec.Identity, error) {
	header := strings.TrimSpace(authorizationHeader)
	if header == "" {
		return nil, nil
	}

	token, ok := parseBearer(header)
	if !ok {
		return nil, nil
	}

	claims, err := authenticator.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, nil
	}

	user, err := authenticator.users.FindByID(context, claims.Subject)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth_authenticator_user_failed: %w", err)
	}
	if user.IsDeleted() {
		return nil, nil
	}

	session, err := authenticator.sessions.FindByID(context, claims.SessionID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth_authenticator_session_failed: %w", err)
	}
	if !session.IsUsable(authenticator.now()) || session.UserID != user.ID {
		return nil, nil
	}

	return &sec.Identity{
		ID:               user.ID,
		Username:         user.Username,
		Email:            user.Email,
		Role:             user.Role,
		EmailVerified:    user.IsVerified,
		TwoFactorEnabled: user.TwoFAEnabled,
		SessionID:        session.ID,
		TokenID:          claims.ID,
	}, nil
}

// parseBearer extracts the token from "Bearer <token>", ignoring scheme case.
func parseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, constants.TokenTypeBearer) {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
