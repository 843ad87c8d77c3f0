// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidshare/internal/api"
	"github.com/taibuivan/vidshare/internal/platform/config"
	"github.com/taibuivan/vidshare/internal/platform/constants"
	"github.com/taibuivan/vidshare/internal/platform/sec"
	"github.com/taibuivan/vidshare/internal/users/account"
	"github.com/taibuivan/vidshare/internal/users/auth"
)

type stubAuthenticator struct{}

// Authenticate resolves every header to anonymous, like a stale token does.
func (stubAuthenticator) Authenticate(context.Context, string) (*sec.Identity, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, deps api.HealthDependencies) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	liveness, readiness := api.NewHealthHandlers(deps, logger)
	cfg := &config.Config{ServerPort: "0", Environment: "test"}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return api.NewRouter(ctx, cfg, logger, stubAuthenticator{}, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(nil),
		Account:   account.NewHandler(nil),
	})
}

func get(handler http.Handler, path, token string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, api.HealthDependencies{})

	recorder := get(router, "/health", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), constants.AppName)
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))
}

func TestRouter_Readiness(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	recorder := get(newTestRouter(t, api.HealthDependencies{CheckDatabase: healthy, CheckCache: healthy}), "/ready", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"ready"`)

	recorder = get(newTestRouter(t, api.HealthDependencies{CheckDatabase: healthy, CheckCache: broken}), "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"degraded"`)
	assert.Contains(t, recorder.Body.String(), "connection refused")
}

func TestRouter_AuthenticationBoundary(t *testing.T) {
	router := newTestRouter(t, api.HealthDependencies{})

	// Probes ignore credentials entirely.
	assert.Equal(t, http.StatusOK, get(router, "/health", "garbage").Code)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/api/v1/account/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/api/v1/account/me", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/api/v1/auth/me", "").Code)
}
