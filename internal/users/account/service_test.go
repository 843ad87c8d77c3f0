// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/sec"
	"github.com/taibuivan/vidshare/internal/users/account"
	"github.com/taibuivan/vidshare/internal/users/audit"
	"github.com/taibuivan/vidshare/internal/users/auth"
	"github.com/taibuivan/vidshare/pkg/pagination"
	"github.com/taibuivan/vidshare/pkg/uuid"
)

// # Fakes

type memoryProfiles map[string]*auth.User

func (profiles memoryProfiles) FindByID(_ context.Context, id string) (*auth.User, error) {
	user, ok := profiles[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *user
	return &copied, nil
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session
}

func (store *memorySessions) add(session auth.Session) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.sessions[session.ID] = &session
}

func (store *memorySessions) FindActiveByUserID(_ context.Context, userID string, now time.Time) ([]auth.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var found []auth.Session
	for _, session := range store.sessions {
		if session.UserID == userID && session.IsUsable(now) {
			found = append(found, *session)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	return found, nil
}

func (store *memorySessions) Revoke(_ context.Context, userID, sessionID string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	session, ok := store.sessions[sessionID]
	if !ok || session.UserID != userID || !session.IsActive {
		return false, nil
	}
	session.IsActive = false
	return true, nil
}

type memoryActivity struct {
	events []*audit.Event // newest first
	err    error
}

func (store *memoryActivity) ListByUser(_ context.Context, userID string, filter audit.Filter, limit, offset int) ([]*audit.Event, int, error) {
	if store.err != nil {
		return nil, 0, store.err
	}

	var matched []*audit.Event
	for _, event := range store.events {
		if event.UserID != userID {
			continue
		}
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, event.Type) {
			continue
		}
		matched = append(matched, event)
	}

	if offset >= len(matched) {
		return nil, len(matched), nil
	}
	return matched[offset:min(offset+limit, len(matched))], len(matched), nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.EventType
}

func (auditor *recordingAuditor) Record(_ context.Context, _ string, eventType audit.EventType, _ string, _ map[string]any) {
	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	auditor.events = append(auditor.events, eventType)
}

// # Fixture

type fixture struct {
	now      time.Time
	alice    *auth.User
	sessions *memorySessions
	activity *memoryActivity
	auditor  *recordingAuditor
	service  *account.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lastLogin := now.Add(-time.Hour)
	alice := &auth.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$04$not-a-real-hash",
		Role:         sec.RoleMember,
		IsVerified:   true,
		TwoFASecret:  "JBSWY3DPEHPK3PXP",
		LastLoginAt:  &lastLogin,
		CreatedAt:    now.Add(-24 * time.Hour),
	}

	f := &fixture{
		now:      now,
		alice:    alice,
		sessions: &memorySessions{sessions: map[string]*auth.Session{}},
		activity: &memoryActivity{},
		auditor:  &recordingAuditor{},
	}
	f.service = account.NewService(memoryProfiles{alice.ID: alice}, f.sessions, f.activity, f.auditor).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) session(userID string, age time.Duration, active bool) auth.Session {
	session := auth.Session{
		ID:             uuid.New(),
		UserID:         userID,
		TokenHash:      "hash-" + userID,
		IPAddress:      "203.0.113.7",
		UserAgent:      "curl/8.0",
		CreatedAt:      f.now.Add(-age),
		LastActivityAt: f.now.Add(-age),
		ExpiresAt:      f.now.Add(7*24*time.Hour - age),
		IsActive:       active,
	}
	f.sessions.add(session)
	return session
}

func (f *fixture) seedActivity(userID string, types ...audit.EventType) {
	for i, eventType := range types {
		f.activity.events = append([]*audit.Event{{
			ID:        uuid.New(),
			UserID:    userID,
			Type:      eventType,
			CreatedAt: f.now.Add(time.Duration(i) * time.Second),
		}}, f.activity.events...)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// # Tests

func TestGetProfile_IsSanitized(t *testing.T) {
	f := newFixture(t)

	profile, err := f.service.GetProfile(context.Background(), f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, f.alice.LastLoginAt, profile.LastLoginAt)
}

func TestGetProfile_MissingAndDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.GetProfile(ctx, uuid.New())
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	deletedAt := f.now
	f.alice.DeletedAt = &deletedAt
	_, err = f.service.GetProfile(ctx, f.alice.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestListSessions_FlagsCurrentAndHidesDead(t *testing.T) {
	f := newFixture(t)
	current := f.session(f.alice.ID, time.Minute, true)
	older := f.session(f.alice.ID, time.Hour, true)
	f.session(f.alice.ID, 2*time.Hour, false)
	f.session(f.alice.ID, 8*24*time.Hour, true) // expired
	f.session(uuid.New(), time.Minute, true)    // someone else

	infos, err := f.service.ListSessions(context.Background(), f.alice.ID, current.ID)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, current.ID, infos[0].ID)
	assert.True(t, infos[0].IsCurrent)
	assert.Equal(t, older.ID, infos[1].ID)
	assert.False(t, infos[1].IsCurrent)
}

func TestListSessions_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)

	infos, err := f.service.ListSessions(context.Background(), f.alice.ID, "")
	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)
}

func TestRevokeSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.session(f.alice.ID, time.Minute, true)
	foreign := f.session(uuid.New(), time.Minute, true)

	require.NoError(t, f.service.RevokeSession(ctx, f.alice.ID, mine.ID))
	assert.Equal(t, []audit.EventType{audit.EventSessionRevoked}, f.auditor.events)

	infos, err := f.service.ListSessions(ctx, f.alice.ID, "")
	require.NoError(t, err)
	assert.Empty(t, infos)

	// Already revoked, foreign and unknown sessions look the same.
	for _, sessionID := range []string{mine.ID, foreign.ID, uuid.New()} {
		err := f.service.RevokeSession(ctx, f.alice.ID, sessionID)
		assert.True(t, apperr.HasCode(err, apperr.CodeNotFound), sessionID)
	}
	assert.Len(t, f.auditor.events, 1)

	err = f.service.RevokeSession(ctx, f.alice.ID, "not-a-uuid")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestListActivity_FiltersAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedActivity(f.alice.ID,
		audit.EventUserRegistered, audit.EventLoginSuccess, audit.EventLoginFailed, audit.EventLoginSuccess)
	f.seedActivity(uuid.New(), audit.EventLoginSuccess)

	events, total, err := f.service.ListActivity(ctx, f.alice.ID, account.ActivityQuery{
		Page: pagination.Params{Page: 1, Limit: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, events, 3)
	assert.Equal(t, audit.EventLoginSuccess, events[0].Type)

	events, total, err = f.service.ListActivity(ctx, f.alice.ID, account.ActivityQuery{
		Types: []string{string(audit.EventLoginSuccess)},
		Page:  pagination.Params{Page: 2, Limit: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventLoginSuccess, events[0].Type)
}

func TestListActivity_EmptyAndInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events, total, err := f.service.ListActivity(ctx, f.alice.ID, account.ActivityQuery{Page: pagination.Params{Page: 1, Limit: 20}})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Zero(t, total)

	_, _, err = f.service.ListActivity(ctx, f.alice.ID, account.ActivityQuery{
		Types: []string{"login_success", "made_up"},
		Page:  pagination.Params{Page: 1, Limit: 20},
	})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}
