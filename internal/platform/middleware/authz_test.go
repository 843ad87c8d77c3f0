// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/ctxutil"
	"github.com/taibuivan/vidshare/internal/platform/middleware"
	"github.com/taibuivan/vidshare/internal/platform/sec"
)

// stubAuthenticator maps raw Authorization headers to identities.
type stubAuthenticator map[string]*sec.Identity

func (stub stubAuthenticator) Authenticate(_ context.Context, header string) (*sec.Identity, error) {
	if header == "" {
		return nil, nil
	}
	if header == "Bearer unreachable" {
		return nil, apperr.Internal(errors.New("connection refused"))
	}
	return stub[header], nil
}

var identities = stubAuthenticator{
	"Bearer member":   {ID: "user-1", Role: sec.RoleMember},
	"Bearer admin":    {ID: "admin-1", Role: sec.RoleAdmin, EmailVerified: true, TwoFactorEnabled: true},
	"Bearer verified": {ID: "user-2", Role: sec.RoleMember, EmailVerified: true},
}

func serve(t *testing.T, handler http.Handler, header string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		request.Header.Set("Authorization", header)
	}
	recorder := httptest.NewRecorder()
	middleware.Authenticate(identities)(handler).ServeHTTP(recorder, request)
	return recorder
}

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

func TestAuthenticate_InjectsIdentity(t *testing.T) {
	var seen *sec.Identity
	handler := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetIdentity(request.Context())
	})

	recorder := serve(t, handler, "Bearer member")
	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.ID)
}

func TestAuthenticate_AnonymousAndInvalid(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(t, okHandler, "").Code)

	// An unresolvable token is anonymous; only guarded routes refuse it.
	assert.Equal(t, http.StatusOK, serve(t, okHandler, "Bearer forged").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, middleware.RequireAuth(okHandler), "Bearer forged").Code)

	recorder := serve(t, okHandler, "Bearer unreachable")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"success":false`)
}

func TestGuards(t *testing.T) {
	tests := []struct {
		name   string
		guard  func(http.Handler) http.Handler
		header string
		status int
	}{
		{"auth_anonymous", middleware.RequireAuth, "", http.StatusUnauthorized},
		{"auth_member", middleware.RequireAuth, "Bearer member", http.StatusOK},
		{"role_member_denied", middleware.RequireRole(sec.RoleAdmin), "Bearer member", http.StatusForbidden},
		{"role_admin", middleware.RequireRole(sec.RoleAdmin), "Bearer admin", http.StatusOK},
		{"any_role", middleware.RequireAnyRole(sec.RoleMember, sec.RoleAdmin), "Bearer member", http.StatusOK},
		{"verified_denied", middleware.RequireVerifiedEmail, "Bearer member", http.StatusForbidden},
		{"verified", middleware.RequireVerifiedEmail, "Bearer verified", http.StatusOK},
		{"two_factor_denied", middleware.RequireTwoFactor, "Bearer verified", http.StatusForbidden},
		{"two_factor", middleware.RequireTwoFactor, "Bearer admin", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, serve(t, tt.guard(okHandler), tt.header).Code)
		})
	}
}
