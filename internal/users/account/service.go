// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/ctxutil"
	"github.com/taibuivan/vidshare/internal/platform/validate"
	"github.com/taibuivan/vidshare/internal/users/audit"
	"github.com/taibuivan/vidshare/internal/users/auth"
)

// # Service Layer

// Service orchestrates the self-service views of a user's own account.
type Service struct {
	profileRepository ProfileRepository
	sessionRepository SessionRepository
	activity          audit.Finder
	auditor           auth.Auditor
	now               func() time.Time
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(profiles ProfileRepository, sessions SessionRepository, activity audit.Finder, auditor auth.Auditor) *Service {
	return &Service{
		profileRepository: profiles,
		sessionRepository: sessions,
		activity:          activity,
		auditor:           auditor,
		now:               time.Now,
	}
}

// WithClock replaces the time source.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// # Profile

/*
GetProfile retrieves the sanitized profile of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.Profile: Profile without credential material
  - error: apperr.NotFound for missing or deleted accounts
*/
func (service *Service) GetProfile(context context.Context, userID string) (*auth.Profile, error) {
	user, err := service.profileRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}

	if user.IsDeleted() {
		return nil, apperr.NotFound("Account")
	}

	return user.Profile(), nil
}

// # Sessions

/*
ListSessions returns the live sessions of a user.

Parameters:
  - context: context.Context
  - userID: string
  - currentSessionID: string (Flagged as IsCurrent)

Returns:
  - []SessionInfo: Never nil
  - error: Storage failures
*/
func (service *Service) ListSessions(context context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	sessions, err := service.sessionRepository.FindActiveByUserID(context, userID, service.now())
	if err != nil {
		return nil, fmt.Errorf("account_service_list_sessions_failed: %w", err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, SessionInfo{
			ID:             session.ID,
			IPAddress:      session.IPAddress,
			UserAgent:      session.UserAgent,
			CreatedAt:      session.CreatedAt,
			LastActivityAt: session.LastActivityAt,
			ExpiresAt:      session.ExpiresAt,
			IsCurrent:      session.ID == currentSessionID,
		})
	}

	return infos, nil
}

/*
RevokeSession signs out one device of the user.

Description: Sessions owned by someone else are reported as not found so
that session IDs cannot be probed. Revoking the current session is allowed
and invalidates the caller's own access token on the next request.

Parameters:
  - context: context.Context
  - userID: string
  - sessionID: string

Returns:
  - error: Validation, NotFound or storage failures
*/
func (service *Service) RevokeSession(context context.Context, userID, sessionID string) error {
	validator := &validate.Validator{}
	validator.Required(FieldSessionID, sessionID).UUID(FieldSessionID, sessionID)
	if err := validator.Err(); err != nil {
		return err
	}

	revoked, err := service.sessionRepository.Revoke(context, userID, sessionID)
	if err != nil {
		return fmt.Errorf("account_service_revoke_session_failed: %w", err)
	}
	if !revoked {
		return apperr.NotFound("Session")
	}

	service.auditor.Record(context, userID, audit.EventSessionRevoked, "Session revoked by its owner", map[string]any{
		"session_id": sessionID,
	})
	ctxutil.GetLogger(context).Info("account_session_revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)

	return nil
}

// # Activity

/*
ListActivity returns one page of the user's own audit events, newest first.

Parameters:
  - context: context.Context
  - userID: string
  - query: ActivityQuery

Returns:
  - []*audit.Event: Never nil
  - int: Total matching events
  - error: Validation (unknown event type) or storage failures
*/
func (service *Service) ListActivity(context context.Context, userID string, query ActivityQuery) ([]*audit.Event, int, error) {
	validator := &validate.Validator{}
	filter := audit.Filter{Types: make([]audit.EventType, 0, len(query.Types))}

	for _, raw := range query.Types {
		eventType := audit.EventType(raw)
		validator.Custom(FieldEventType, !eventType.Valid(), "Unknown event type: "+raw)
		filter.Types = append(filter.Types, eventType)
	}

	if err := validator.Err(); err != nil {
		return nil, 0, err
	}

	events, total, err := service.activity.ListByUser(context, userID, filter, query.Page.Limit, query.Page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_activity_failed: %w", err)
	}
	if events == nil {
		events = []*audit.Event{}
	}

	return events, total, nil
}
