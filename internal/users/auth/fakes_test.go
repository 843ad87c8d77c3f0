// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/sec"
	"github.com/taibuivan/vidshare/internal/users/audit"
	"github.com/taibuivan/vidshare/internal/users/auth"
	"github.com/taibuivan/vidshare/pkg/uuid"
)

// # In-memory Users

type memoryUsers struct {
	mu    sync.Mutex
	rows  map[string]*auth.User
	clock func() time.Time
}

func newMemoryUsers(clock func() time.Time) *memoryUsers {
	return &memoryUsers{rows: map[string]*auth.User{}, clock: clock}
}

func (store *memoryUsers) find(match func(*auth.User) bool) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, user := range store.rows {
		if match(user) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *memoryUsers) update(id string, mutate func(*auth.User)) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	user, ok := store.rows[id]
	if !ok {
		return apperr.NotFound("User")
	}
	mutate(user)
	return nil
}

func (store *memoryUsers) get(id string) *auth.User {
	store.mu.Lock()
	defer store.mu.Unlock()
	clone := *store.rows[id]
	return &clone
}

func (store *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	return store.find(func(user *auth.User) bool { return user.ID == id })
}

func (store *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return store.find(func(user *auth.User) bool { return strings.EqualFold(user.Email, email) })
}

func (store *memoryUsers) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	return store.find(func(user *auth.User) bool { return strings.EqualFold(user.Username, username) })
}

func (store *memoryUsers) FindByVerificationTokenHash(_ context.Context, hash string) (*auth.User, error) {
	return store.find(func(user *auth.User) bool { return hash != "" && user.VerificationTokenHash == hash })
}

func (store *memoryUsers) FindByResetTokenHash(_ context.Context, hash string) (*auth.User, error) {
	return store.find(func(user *auth.User) bool { return hash != "" && user.ResetTokenHash == hash })
}

func (store *memoryUsers) Create(_ context.Context, user *auth.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, existing := range store.rows {
		if strings.EqualFold(existing.Email, user.Email) || strings.EqualFold(existing.Username, user.Username) {
			return apperr.Conflict("Resource already exists")
		}
	}
	user.CreatedAt = store.clock()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	store.rows[user.ID] = &clone
	return nil
}

func (store *memoryUsers) RegisterFailedLogin(_ context.Context, userID string, maxAttempts int, lockUntil time.Time) (auth.LoginFailure, error) {
	var failure auth.LoginFailure
	err := store.update(userID, func(user *auth.User) {
		if user.LockedUntil != nil && !user.LockedUntil.After(store.clock()) {
			user.FailedLoginAttempts = 0
			user.LockedUntil = nil
		}
		user.FailedLoginAttempts++
		failure.Attempts = user.FailedLoginAttempts
		if user.FailedLoginAttempts >= maxAttempts {
			user.LockedUntil = &lockUntil
			failure.LockedUntil = &lockUntil
		}
	})
	return failure, err
}

func (store *memoryUsers) RecordSuccessfulLogin(_ context.Context, userID string, at time.Time) error {
	return store.update(userID, func(user *auth.User) {
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		user.LastLoginAt = &at
	})
}

func (store *memoryUsers) SetVerificationToken(_ context.Context, userID, hash string, expiresAt time.Time) error {
	return store.update(userID, func(user *auth.User) {
		user.VerificationTokenHash = hash
		user.VerificationExpiresAt = &expiresAt
	})
}

func (store *memoryUsers) MarkVerified(_ context.Context, userID string) error {
	return store.update(userID, func(user *auth.User) {
		user.IsVerified = true
		user.VerificationTokenHash = ""
		user.VerificationExpiresAt = nil
	})
}

func (store *memoryUsers) SetResetToken(_ context.Context, userID, hash string, expiresAt time.Time) error {
	return store.update(userID, func(user *auth.User) {
		user.ResetTokenHash = hash
		user.ResetExpiresAt = &expiresAt
	})
}

func (store *memoryUsers) ClearResetToken(_ context.Context, userID string) error {
	return store.update(userID, func(user *auth.User) {
		user.ResetTokenHash = ""
		user.ResetExpiresAt = nil
	})
}

func (store *memoryUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	return store.update(userID, func(user *auth.User) {
		user.PasswordHash = hash
		user.ResetTokenHash = ""
		user.ResetExpiresAt = nil
	})
}

func (store *memoryUsers) SetTwoFactorSecret(_ context.Context, userID, secret string) error {
	return store.update(userID, func(user *auth.User) {
		user.TwoFASecret = secret
		user.TwoFAEnabled = false
	})
}

func (store *memoryUsers) EnableTwoFactor(_ context.Context, userID string) error {
	return store.update(userID, func(user *auth.User) { user.TwoFAEnabled = user.TwoFASecret != "" })
}

func (store *memoryUsers) DisableTwoFactor(_ context.Context, userID string) error {
	return store.update(userID, func(user *auth.User) {
		user.TwoFAEnabled = false
		user.TwoFASecret = ""
	})
}

func (store *memoryUsers) SoftDelete(_ context.Context, userID string, at time.Time) error {
	return store.update(userID, func(user *auth.User) { user.DeletedAt = &at })
}

// # In-memory Sessions

type memorySessions struct {
	mu         sync.Mutex
	rows       map[string]*auth.Session
	failCreate bool
}

func newMemorySessions() *memorySessions {
	return &memorySessions{rows: map[string]*auth.Session{}}
}

func (store *memorySessions) Create(_ context.Context, session *auth.Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failCreate {
		return errors.New("connection refused")
	}
	clone := *session
	store.rows[session.ID] = &clone
	return nil
}

func (store *memorySessions) FindByID(_ context.Context, id string) (*auth.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if session, ok := store.rows[id]; ok {
		clone := *session
		return &clone, nil
	}
	return nil, apperr.NotFound("Session")
}

func (store *memorySessions) FindByTokenHash(_ context.Context, hash string) (*auth.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, session := range store.rows {
		if session.TokenHash == hash {
			clone := *session
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (store *memorySessions) Touch(_ context.Context, id string, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if session, ok := store.rows[id]; ok {
		session.LastActivityAt = at
	}
	return nil
}

func (store *memorySessions) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return store.RevokeOthers(ctx, userID, "")
}

func (store *memorySessions) RevokeOthers(_ context.Context, userID, keepID string) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	var revoked int64
	for _, session := range store.rows {
		if session.UserID == userID && session.IsActive && session.ID != keepID {
			session.IsActive = false
			revoked++
		}
	}
	return revoked, nil
}

func (store *memorySessions) active(userID string) []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	var ids []string
	for _, session := range store.rows {
		if session.UserID == userID && session.IsActive {
			ids = append(ids, session.ID)
		}
	}
	return ids
}

// # In-memory Backup Codes

type memoryBackupCodes struct {
	mu   sync.Mutex
	rows []*auth.BackupCode
}

func (store *memoryBackupCodes) ReplaceAll(_ context.Context, userID string, hashes []string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	kept := store.rows[:0]
	for _, code := range store.rows {
		if code.UserID != userID {
			kept = append(kept, code)
		}
	}
	store.rows = kept
	for _, hash := range hashes {
		store.rows = append(store.rows, &auth.BackupCode{ID: uuid.New(), UserID: userID, CodeHash: hash})
	}
	return nil
}

func (store *memoryBackupCodes) FindUnused(_ context.Context, userID string) ([]auth.BackupCode, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	var codes []auth.BackupCode
	for _, code := range store.rows {
		if code.UserID == userID && !code.IsUsed {
			codes = append(codes, *code)
		}
	}
	return codes, nil
}

func (store *memoryBackupCodes) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, code := range store.rows {
		if code.ID == id && !code.IsUsed {
			code.IsUsed = true
			code.UsedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (store *memoryBackupCodes) DeleteAll(_ context.Context, userID string) error {
	return store.ReplaceAll(context.Background(), userID, nil)
}

func (store *memoryBackupCodes) count(userID string) int {
	codes, _ := store.FindUnused(context.Background(), userID)
	return len(codes)
}

// # Recorders

type recordedEvent struct {
	UserID   string
	Type     audit.EventType
	Metadata map[string]any
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (auditor *recordingAuditor) Record(_ context.Context, userID string, eventType audit.EventType, _ string, metadata map[string]any) {
	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	auditor.events = append(auditor.events, recordedEvent{UserID: userID, Type: eventType, Metadata: metadata})
}

func (auditor *recordingAuditor) count(eventType audit.EventType) int {
	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	total := 0
	for _, event := range auditor.events {
		if event.Type == eventType {
			total++
		}
	}
	return total
}

type sentMail struct {
	Kind          string
	To            string
	Link          string
	RestoreBefore time.Time
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (mailer *recordingMailer) record(mail sentMail) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.fail {
		return errors.New("smtp unavailable")
	}
	mailer.sent = append(mailer.sent, mail)
	return nil
}

func (mailer *recordingMailer) SendVerification(_ context.Context, email, _, link string) error {
	return mailer.record(sentMail{Kind: "verification", To: email, Link: link})
}

func (mailer *recordingMailer) SendPasswordReset(_ context.Context, email, _, link string) error {
	return mailer.record(sentMail{Kind: "reset", To: email, Link: link})
}

func (mailer *recordingMailer) SendAccountDeletion(_ context.Context, email, _ string, restoreBefore time.Time) error {
	return mailer.record(sentMail{Kind: "deletion", To: email, RestoreBefore: restoreBefore})
}

// lastToken returns the token query parameter of the latest mail of kind.
func (mailer *recordingMailer) lastToken(t *testing.T, kind string) string {
	t.Helper()
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	for index := len(mailer.sent) - 1; index >= 0; index-- {
		if mailer.sent[index].Kind == kind {
			_, token, found := strings.Cut(mailer.sent[index].Link, "?token=")
			require.True(t, found)
			return token
		}
	}
	t.Fatalf("no %s mail sent", kind)
	return ""
}

// # Harness

type harness struct {
	now         time.Time
	redis       *miniredis.Miniredis
	users       *memoryUsers
	sessions    *memorySessions
	backupCodes *memoryBackupCodes
	auditor     *recordingAuditor
	mailer      *recordingMailer
	tokens      *sec.TokenService
	totp        *sec.TOTP
	service     *auth.Service
	auth        *auth.Authenticator
}

const strongPassword = "Sup3rSecret"

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }

	h.redis = miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: h.redis.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Secret:     "harness-secret-0123456789abcdef",
		Issuer:     "vidshare.test",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	h.tokens = tokens.WithClock(clock)
	h.totp = sec.NewTOTP("Vidshare", "https://qr.example/?data=")
	h.users = newMemoryUsers(clock)
	h.sessions = newMemorySessions()
	h.backupCodes = &memoryBackupCodes{}
	h.auditor = &recordingAuditor{}
	h.mailer = &recordingMailer{}

	h.service = auth.NewService(auth.Dependencies{
		Users:       h.users,
		Sessions:    h.sessions,
		BackupCodes: h.backupCodes,
		Attempts:    auth.NewAttemptLimiter(client),
		Challenges:  auth.NewChallengeStore(client),
		Tokens:      h.tokens,
		Hasher:      sec.NewPasswordHasher(4),
		TOTP:        h.totp,
		Audit:       h.auditor,
		Mailer:      h.mailer,
	}, auth.ServiceConfig{
		AppBaseURL:           "https://vidshare.test",
		LoginMaxAttempts:     5,
		LoginLockout:         15 * time.Minute,
		TwoFactorMaxAttempts: 3,
		TwoFactorLockout:     15 * time.Minute,
		PasswordPolicy:       sec.DefaultPasswordPolicy(),
	}).WithClock(clock)

	h.auth = auth.NewAuthenticator(h.tokens, h.users, h.sessions).WithClock(clock)

	return h
}

func (h *harness) register(t *testing.T, username, email string) *auth.TokenBundle {
	t.Helper()
	bundle, err := h.service.Register(context.Background(), auth.RegisterInput{
		Username: username,
		Email:    email,
		Password: strongPassword,
	})
	require.NoError(t, err)
	return bundle
}

// enableTwoFactor runs the full enrollment and returns secret and backup codes.
func (h *harness) enableTwoFactor(t *testing.T, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := h.service.EnableTwoFactor(ctx, userID)
	require.NoError(t, err)

	code, err := h.totp.CurrentCode(setup.Secret, h.now)
	require.NoError(t, err)
	require.NoError(t, h.service.ConfirmTwoFactor(ctx, userID, code))

	return setup.Secret, setup.BackupCodes
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// requireAnonymous asserts that token no longer resolves to a caller.
func (h *harness) requireAnonymous(t *testing.T, token string) {
	t.Helper()
	identity, err := h.auth.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperr.HasCode(err, code), "expected %s, got %v", code, err)
}
