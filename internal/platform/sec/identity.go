// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "github.com/taibuivan/vidshare/internal/platform/apperr"

// Identity is the normalized caller resolved by the request authenticator.
//
// Every field except SessionID and TokenID comes from the current database
// row, not from the token payload.
type Identity struct {
	ID               string   `json:"id"`
	Username         string   `json:"username"`
	Email            string   `json:"email"`
	Role             UserRole `json:"role"`
	EmailVerified    bool     `json:"email_verified"`
	TwoFactorEnabled bool     `json:"two_fa_enabled"`
	SessionID        string   `json:"session_id"`
	TokenID          string   `json:"jti"`
}

// # Authorization Guards
//
// Each guard returns the identity unchanged on success, or a typed
// Unauthorized/Forbidden error the transport layer renders.

// RequireAuth fails with Unauthorized when no identity is present.
func RequireAuth(identity *Identity) (*Identity, error) {
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return identity, nil
}

// RequireRole succeeds when the caller's role is at least role.
func RequireRole(identity *Identity, role UserRole) (*Identity, error) {
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	if !identity.Role.AtLeast(role) {
		return nil, apperr.Forbidden("Insufficient permissions")
	}
	return identity, nil
}

// RequireAnyRole succeeds when the caller holds exactly one of roles.
func RequireAnyRole(identity *Identity, roles ...UserRole) (*Identity, error) {
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	for _, role := range roles {
		if identity.Role == role {
			return identity, nil
		}
	}
	return nil, apperr.Forbidden("Insufficient permissions")
}

// RequireOwnership succeeds for the owner of a resource, and for any admin.
func RequireOwnership(identity *Identity, resourceOwnerID string) (*Identity, error) {
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	if identity.Role == RoleAdmin || (resourceOwnerID != "" && identity.ID == resourceOwnerID) {
		return identity, nil
	}
	return nil, apperr.Forbidden("You do not own this resource")
}

// RequireTwoFactor succeeds when the caller has two-factor authentication enabled.
func RequireTwoFactor(identity *Identity) (*Identity, error) {
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	if !identity.TwoFactorEnabled {
		return nil, apperr.Forbidden("Two-factor authentication must be enabled")
	}
	return identity, nil
}

// RequireVerifiedEmail succeeds when the caller's email address is verified.
func RequireVerifiedEmail(identity *Identity) (*Identity, error) {
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	if !identity.EmailVerified {
		return nil, apperr.Forbidden("Email address must be verified")
	}
	return identity, nil
}
