// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/vidshare/internal/platform/ctxkey"
	"github.com/taibuivan/vidshare/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Client Metadata

// ClientInfo is the network origin of a request, recorded on sessions and audit events.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo returns a new context carrying the caller's IP and user agent.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ctxkey.KeyClientInfo, info)
}

// GetClientInfo retrieves the client metadata, or the zero value outside HTTP requests.
func GetClientInfo(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(ctxkey.KeyClientInfo).(ClientInfo)
	return info
}

// # Identity & Access

// identityHolder is stored by pointer so the logging middleware, which runs
// before authentication, can read the identity after the handler returns.
type identityHolder struct {
	identity *sec.Identity
}

// WithIdentitySlot returns a context with an empty, settable identity slot.
func WithIdentitySlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxkey.KeyIdentity, &identityHolder{})
}

// WithIdentity attaches the authenticated caller to the context.
//
// If an identity slot already exists it is filled in place as well, so
// outer middleware observes the caller.
func WithIdentity(ctx context.Context, identity *sec.Identity) context.Context {
	if holder, ok := ctx.Value(ctxkey.KeyIdentity).(*identityHolder); ok {
		holder.identity = identity
	}
	return context.WithValue(ctx, ctxkey.KeyIdentity, &identityHolder{identity: identity})
}

// GetIdentity retrieves the [*sec.Identity] from the [context.Context].
// Returns nil for anonymous requests.
func GetIdentity(ctx context.Context) *sec.Identity {
	holder, ok := ctx.Value(ctxkey.KeyIdentity).(*identityHolder)
	if !ok {
		return nil
	}
	return holder.identity
}
