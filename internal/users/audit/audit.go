// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package audit records security-relevant events into an append-only ledger.

Recording is a side effect: a failing store is logged and never fails the
operation that produced the event.

# Architecture

  - Event: Typed record with optional user, client metadata and JSON metadata.
  - Store: Persistence contract, implemented on system.auditlog.
  - Finder: Paginated read-back of one user's history.
  - Ledger: Stamps client metadata from the context and swallows store failures.
*/
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/vidshare/internal/platform/ctxutil"
	"github.com/taibuivan/vidshare/pkg/uuid"
)

// # Event Taxonomy

// EventType names one kind of security event.
type EventType string

const (
	EventUserRegistered           EventType = "user_registered"
	EventLoginSuccess             EventType = "login_success"
	EventLoginFailed              EventType = "login_failed"
	EventSuspiciousActivity       EventType = "suspicious_activity"
	EventAccountLocked            EventType = "account_locked"
	EventLogout                   EventType = "logout"
	EventTokenRefreshed           EventType = "token_refreshed"
	EventEmailVerified            EventType = "email_verified"
	EventVerificationResent       EventType = "verification_resent"
	EventPasswordResetRequested   EventType = "password_reset_requested"
	EventPasswordResetCompleted   EventType = "password_reset_completed"
	EventPasswordChanged          EventType = "password_changed"
	EventAccountDeletionRequested EventType = "account_deletion_requested"
	EventTwoFactorSetupStarted    EventType = "two_factor_setup_started"
	EventTwoFactorEnabled         EventType = "two_factor_enabled"
	EventTwoFactorDisabled        EventType = "two_factor_disabled"
	EventTwoFactorVerified        EventType = "two_factor_verified"
	EventTwoFactorFailed          EventType = "two_factor_failed"
	EventTwoFactorLocked          EventType = "two_factor_locked"
	EventBackupCodeUsed           EventType = "backup_code_used"
	EventBackupCodesRegenerated   EventType = "backup_codes_regenerated"
	EventSessionRevoked           EventType = "session_revoked"
)

var knownEventTypes = map[EventType]struct{}{
	EventUserRegistered: {}, EventLoginSuccess: {}, EventLoginFailed: {},
	EventSuspiciousActivity: {}, EventAccountLocked: {}, EventLogout: {},
	EventTokenRefreshed: {}, EventEmailVerified: {}, EventVerificationResent: {},
	EventPasswordResetRequested: {}, EventPasswordResetCompleted: {}, EventPasswordChanged: {},
	EventAccountDeletionRequested: {}, EventTwoFactorSetupStarted: {}, EventTwoFactorEnabled: {},
	EventTwoFactorDisabled: {}, EventTwoFactorVerified: {}, EventTwoFactorFailed: {},
	EventTwoFactorLocked: {}, EventBackupCodeUsed: {}, EventBackupCodesRegenerated: {},
	EventSessionRevoked: {},
}

// Valid reports whether t belongs to the event taxonomy.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// Event is one append-only audit record.
type Event struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id,omitempty"` // Empty for pre-authentication events.
	Type        EventType      `json:"event_type"`
	Description string         `json:"description"`
	IPAddress   string         `json:"ip_address"`
	UserAgent   string         `json:"user_agent"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Store defines the persistence contract for audit events.
type Store interface {

	/*
		Append persists a single event. Events are never updated or deleted.

		Parameters:
		  - context: context.Context
		  - event: *Event

		Returns:
		  - error: Persistence failures
	*/
	Append(context context.Context, event *Event) error
}

// Filter narrows a per-user listing. An empty Types matches every event type.
type Filter struct {
	Types []EventType
}

// Finder reads back the history of a single user.
type Finder interface {

	/*
		ListByUser returns one page of a user's events, newest first.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - filter: Filter
		  - limit, offset: int

		Returns:
		  - []*Event: The requested page
		  - int: Total number of matching events across all pages
		  - error: Retrieval failures
	*/
	ListByUser(context context.Context, userID string, filter Filter, limit, offset int) ([]*Event, int, error)
}

// # Ledger

// Ledger is the entry point used by services to record events.
type Ledger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLedger constructs a [Ledger] writing to store.
func NewLedger(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger, now: time.Now}
}

/*
Record appends an event, filling in ID, timestamp and client metadata.

Description: Best-effort. A store failure is logged at warn level and
swallowed so that auditing can never block authentication.

Parameters:
  - context: context.Context (client IP and user agent are read from it)
  - userID: string (empty for unknown callers)
  - eventType: EventType
  - description: string
  - metadata: map[string]any (optional)
*/
func (ledger *Ledger) Record(context context.Context, userID string, eventType EventType, description string, metadata map[string]any) {
	client := ctxutil.GetClientInfo(context)

	event := &Event{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        eventType,
		Description: description,
		IPAddress:   client.IP,
		UserAgent:   client.UserAgent,
		Metadata:    metadata,
		CreatedAt:   ledger.now().UTC(),
	}

	if err := ledger.store.Append(context, event); err != nil {
		logger := ctxutil.GetLogger(context)
		if logger == slog.Default() && ledger.logger != nil {
			logger = ledger.logger
		}
		logger.WarnContext(context, "audit_record_failed",
			slog.String("event_type", string(eventType)),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}
