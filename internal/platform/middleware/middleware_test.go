// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/vidshare/internal/platform/ctxutil"
	"github.com/taibuivan/vidshare/internal/platform/middleware"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "client-supplied")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "client-supplied", seen)
}

func TestStructuredLogger_ClientInfo(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proxies := middleware.TrustedProxies{netip.MustParsePrefix("192.0.2.0/24")}

	var info ctxutil.ClientInfo
	handler := middleware.ClientIP(proxies)(middleware.StructuredLogger(logger)(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		info = ctxutil.GetClientInfo(request.Context())
	})))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Forwarded-For", "198.51.100.7, 192.0.2.10")
	request.Header.Set("User-Agent", "test-agent")
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "198.51.100.7", info.IP)
	assert.Equal(t, "test-agent", info.UserAgent)
}

func TestTrustedProxies_Resolve(t *testing.T) {
	proxies := middleware.TrustedProxies{netip.MustParsePrefix("10.0.0.0/8")}
	oversized := strings.Repeat("9", 100)

	tests := []struct {
		name       string
		proxies    middleware.TrustedProxies
		remoteAddr string
		realIP     string
		forwarded  string
		want       string
	}{
		{"untrusted_peer_ignores_headers", nil, "203.0.113.5:4000", "198.51.100.7", "198.51.100.8", "203.0.113.5"},
		{"trusted_real_ip", proxies, "10.1.2.3:4000", "198.51.100.7", "", "198.51.100.7"},
		{"trusted_oversized_real_ip", proxies, "10.1.2.3:4000", oversized, "", "10.1.2.3"},
		{"trusted_garbage_real_ip_uses_forwarded", proxies, "10.1.2.3:4000", "<script>", "198.51.100.8", "198.51.100.8"},
		{"forwarded_skips_trusted_hops", proxies, "10.1.2.3:4000", "", "198.51.100.9, 10.0.0.7", "198.51.100.9"},
		{"forwarded_garbage_hop", proxies, "10.1.2.3:4000", "", "198.51.100.9, " + oversized, "10.1.2.3"},
		{"mapped_ipv4_peer", nil, "[::ffff:203.0.113.5]:4000", "", "", "203.0.113.5"},
		{"ipv6_peer", nil, "[2001:db8::1]:4000", "", "", "2001:db8::1"},
		{"unparseable_peer", nil, "pipe", "198.51.100.7", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				request.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				request.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			got := tt.proxies.Resolve(request)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 45)
		})
	}
}

func TestRealIP_DefaultsToPeer(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "203.0.113.5:4000"
	request.Header.Set("X-Real-IP", strings.Repeat("a", 100))

	assert.Equal(t, "203.0.113.5", middleware.RealIP(request))
}

func TestRateLimit_SpoofedHeaderSharesBucket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.ClientIP(nil)(middleware.RateLimit(ctx, 1, 1)(okHandler))

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"198.51.100.1", "198.51.100.2"} {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("X-Real-IP", spoofed)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimit(ctx, 1, 2)(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.RemoteAddr = "192.0.2.1:5555"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestPanicRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := middleware.PanicRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "boom")
}

type devConfig bool

func (dev devConfig) IsDevelopment() bool { return bool(dev) }

func TestCORS(t *testing.T) {
	handler := middleware.CORS(devConfig(false), "vidshare.app")(okHandler)

	allowed := httptest.NewRequest(http.MethodOptions, "/", nil)
	allowed.Header.Set("Origin", "https://www.vidshare.app")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, allowed)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://www.vidshare.app", recorder.Header().Get("Access-Control-Allow-Origin"))

	foreign := httptest.NewRequest(http.MethodGet, "/", nil)
	foreign.Header.Set("Origin", "https://evil.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, foreign)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}
