// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"

	"github.com/taibuivan/vidshare/internal/platform/constants"
	"github.com/taibuivan/vidshare/internal/platform/ctxutil"
	"github.com/taibuivan/vidshare/internal/platform/respond"
	"github.com/taibuivan/vidshare/internal/platform/sec"
)

// Authenticator resolves the caller behind an Authorization header.
//
// # Why an interface?
//
// Defining Authenticator here decouples the middleware from the `auth` service
// implementation, allowing us to easily inject fakes during unit testing.
type Authenticator interface {
	Authenticate(context context.Context, authorizationHeader string) (*sec.Identity, error)
}

/*
Authenticate resolves the bearer token of every request into a [sec.Identity].

Flow:
 1. The [Authenticator] verifies the token, user and session.
 2. No identity: the request proceeds as anonymous. Guards reject it later.
 3. An error (storage failure) aborts the request.
 4. On success the identity is injected into the request context.

Parameters:
  - authenticator: Authenticator

Returns:
  - An [http.Handler] middleware.
*/
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity, err := authenticator.Authenticate(request.Context(), request.Header.Get(constants.HeaderAuthorization))
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// Anonymous Access
			if identity == nil {
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithIdentity(request.Context(), identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Authorization Guards
//
// Must be registered in the router AFTER [Authenticate]. Each guard implies
// [RequireAuth], so mounting both is unnecessary.

// guard adapts a [sec] identity check into a middleware.
func guard(check func(*sec.Identity) (*sec.Identity, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if _, err := check(ctxutil.GetIdentity(request.Context())); err != nil {
				respond.Error(writer, request, err)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireAuth blocks anonymous requests with HTTP 401.
func RequireAuth(next http.Handler) http.Handler {
	return guard(sec.RequireAuth)(next)
}

// RequireRole blocks requests whose role is below role with HTTP 403.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return guard(func(identity *sec.Identity) (*sec.Identity, error) {
		return sec.RequireRole(identity, role)
	})
}

// RequireAnyRole blocks requests whose role is not one of roles with HTTP 403.
func RequireAnyRole(roles ...sec.UserRole) func(http.Handler) http.Handler {
	return guard(func(identity *sec.Identity) (*sec.Identity, error) {
		return sec.RequireAnyRole(identity, roles...)
	})
}

// RequireVerifiedEmail blocks callers whose email is not verified.
func RequireVerifiedEmail(next http.Handler) http.Handler {
	return guard(sec.RequireVerifiedEmail)(next)
}

// RequireTwoFactor blocks callers without two-factor authentication enabled.
func RequireTwoFactor(next http.Handler) http.Handler {
	return guard(sec.RequireTwoFactor)(next)
}
