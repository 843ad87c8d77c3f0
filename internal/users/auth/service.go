// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/constants"
	"github.com/taibuivan/vidshare/internal/platform/ctxutil"
	"github.com/taibuivan/vidshare/internal/platform/sec"
	"github.com/taibuivan/vidshare/internal/platform/validate"
	"github.com/taibuivan/vidshare/internal/users/audit"
	"github.com/taibuivan/vidshare/pkg/uuid"
)

// # Contracts & Types

// TokenIssuer is the subset of [sec.TokenService] the service relies on.
type TokenIssuer interface {
	IssueAccessToken(subject sec.AccessSubject) (sec.IssuedToken, error)
	IssueRefreshToken(userID string) (sec.IssuedToken, error)
	VerifyRefreshToken(token string) (*sec.RefreshClaims, error)
	AccessTTL() time.Duration
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Check(plainTextPassword, existingHash string) bool
}

// Auditor records security events. [audit.Ledger] is the production implementation.
type Auditor interface {
	Record(context context.Context, userID string, eventType audit.EventType, description string, metadata map[string]any)
}

// Dependencies groups the collaborators of [Service].
type Dependencies struct {
	Users       UserRepository
	Sessions    SessionRepository
	BackupCodes BackupCodeRepository
	Attempts    AttemptLimiter
	Challenges  ChallengeStore
	Tokens      TokenIssuer
	Hasher      PasswordHasher
	TOTP        *sec.TOTP
	Audit       Auditor
	Mailer      Mailer
}

// ServiceConfig holds the tunable security parameters of [Service].
type ServiceConfig struct {
	// AppBaseURL prefixes the links sent by email.
	AppBaseURL string

	LoginMaxAttempts int
	LoginLockout     time.Duration

	TwoFactorMaxAttempts int
	TwoFactorLockout     time.Duration

	PasswordPolicy sec.PasswordPolicy
}

// Service implements the authentication use cases: registration, login with
// optional second factor, session refresh, email verification, password
// recovery, two-factor enrollment and account deletion.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, lockout,
// session binding or two-factor logic must be reviewed by the security team.
type Service struct {
	users       UserRepository
	sessions    SessionRepository
	backupCodes BackupCodeRepository
	attempts    AttemptLimiter
	challenges  ChallengeStore
	tokens      TokenIssuer
	hasher      PasswordHasher
	totp        *sec.TOTP
	auditor     Auditor
	mailer      Mailer

	config ServiceConfig
	now    func() time.Time

	// dummyHash is compared against when the email is unknown so that both
	// failure paths pay for one bcrypt comparison.
	dummyHashOnce sync.Once
	dummyHash     string
}

// NewService constructs a new [Service] with its dependencies.
func NewService(deps Dependencies, config ServiceConfig) *Service {
	return &Service{
		users:       deps.Users,
		sessions:    deps.Sessions,
		backupCodes: deps.BackupCodes,
		attempts:    deps.Attempts,
		challenges:  deps.Challenges,
		tokens:      deps.Tokens,
		hasher:      deps.Hasher,
		totp:        deps.TOTP,
		auditor:     deps.Audit,
		mailer:      deps.Mailer,
		config:      config,
		now:         time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// # Results

// TokenBundle is returned by every flow that ends in an authenticated state.
type TokenBundle struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         *Profile `json:"user"`
}

// LoginOutcome tags the variant carried by a [LoginResult].
type LoginOutcome int

const (
	// LoginAuthenticated means Tokens is set.
	LoginAuthenticated LoginOutcome = iota + 1

	// LoginRequiresTwoFactor means no token was issued; the client must call
	// VerifyTwoFactorLogin with UserID.
	LoginRequiresTwoFactor
)

// LoginResult is the outcome of a successful password check.
type LoginResult struct {
	Kind   LoginOutcome
	Tokens *TokenBundle
	UserID string
}

// RefreshResult carries a new access token for an existing session.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

/*
Register validates, hashes, and persists a brand new user account, then
signs the member in.

Description: The verification email is a side effect; a delivery failure
never rolls back the account.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *TokenBundle: Tokens for the new session
  - error: ValidationError, Conflict or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*TokenBundle, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, username).
		Username(FieldUsername, username).
		Required(FieldEmail, email).
		MaxLen(FieldEmail, email, maxEmailLength).
		Email(FieldEmail, email).
		Required(FieldPassword, input.Password).
		Password(FieldPassword, input.Password, service.config.PasswordPolicy)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Verify uniqueness up front for a clean message; the unique indexes still
	// catch concurrent registrations in Create.
	if err := service.ensureAvailable(context, email, username); err != nil {
		return nil, err
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	verificationToken, err := sec.GenerateSecureToken(constants.OpaqueTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("auth_service_verification_token_failed: %w", err)
	}
	verificationExpiry := service.now().UTC().Add(constants.VerificationTokenTTL)

	user := &User{
		ID:                    uuid.New(),
		Username:              username,
		Email:                 email,
		PasswordHash:          hashedPassword,
		Role:                  sec.RoleMember,
		IsVerified:            false,
		VerificationTokenHash: sec.HashToken(verificationToken),
		VerificationExpiresAt: &verificationExpiry,
	}

	if err := service.users.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	service.sendVerification(context, user, verificationToken)

	bundle, err := service.completeLogin(context, user)
	if err != nil {
		return nil, err
	}

	service.auditor.Record(context, user.ID, audit.EventUserRegistered, "Account created", map[string]any{
		"username": user.Username,
	})

	return bundle, nil
}

func (service *Service) ensureAvailable(context context.Context, email, username string) error {
	_, err := service.users.FindByEmail(context, email)
	switch {
	case err == nil:
		return apperr.Conflict("Email already registered")
	case !apperr.HasCode(err, apperr.CodeNotFound):
		return fmt.Errorf("auth_service_email_lookup_failed: %w", err)
	}

	_, err = service.users.FindByUsername(context, username)
	switch {
	case err == nil:
		return apperr.Conflict("Username already taken")
	case !apperr.HasCode(err, apperr.CodeNotFound):
		return fmt.Errorf("auth_service_username_lookup_failed: %w", err)
	}

	return nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

/*
Login validates user credentials and either issues tokens or opens a
two-factor challenge.

Description: A lock in force is reported before the password is checked.
Unknown emails and wrong passwords produce the same error; only the latter
advances the lockout counter.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Authenticated or RequiresTwoFactor
  - error: ValidationError, AccountLocked, InvalidCredentials or AccountDisabled
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).
		MaxLen(FieldEmail, email, maxEmailLength).
		Email(FieldEmail, email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, minPasswordLength)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.users.FindByEmail(context, email)
	if err != nil && !apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	now := service.now()

	// Unknown email: burn a comparison and fail like a wrong password
	if user == nil {
		service.hasher.Check(input.Password, service.timingHash())
		service.auditor.Record(context, "", audit.EventLoginFailed, "Login with unknown email", map[string]any{
			"email": email,
		})
		return nil, apperr.InvalidCredentials()
	}

	if user.IsLocked(now) {
		service.auditor.Record(context, user.ID, audit.EventSuspiciousActivity, "Login attempt on locked account", map[string]any{
			"locked_until": user.LockedUntil.UTC(),
		})
		return nil, apperr.AccountLocked()
	}

	if !service.hasher.Check(input.Password, user.PasswordHash) {
		service.registerLoginFailure(context, user, now)
		return nil, apperr.InvalidCredentials()
	}

	if user.IsDeleted() {
		service.auditor.Record(context, user.ID, audit.EventSuspiciousActivity, "Login attempt on deleted account", nil)
		return nil, apperr.AccountDisabled()
	}

	if user.TwoFAEnabled {
		if err := service.challenges.Put(context, user.ID, constants.TwoFactorChallengeTTL); err != nil {
			return nil, fmt.Errorf("auth_service_2fa_challenge_failed: %w", err)
		}
		return &LoginResult{Kind: LoginRequiresTwoFactor, UserID: user.ID}, nil
	}

	bundle, err := service.completeLogin(context, user)
	if err != nil {
		return nil, err
	}

	service.auditor.Record(context, user.ID, audit.EventLoginSuccess, "Password login", nil)

	return &LoginResult{Kind: LoginAuthenticated, Tokens: bundle, UserID: user.ID}, nil
}

// registerLoginFailure audits the failure and advances the lockout counter.
func (service *Service) registerLoginFailure(context context.Context, user *User, now time.Time) {
	service.auditor.Record(context, user.ID, audit.EventLoginFailed, "Wrong password", nil)

	failure, err := service.users.RegisterFailedLogin(context, user.ID, service.config.LoginMaxAttempts, now.UTC().Add(service.config.LoginLockout))
	if err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "auth_login_failure_counter_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return
	}

	if failure.LockedUntil == nil {
		return
	}

	metadata := map[string]any{
		"attempts":     failure.Attempts,
		"locked_until": failure.LockedUntil.UTC(),
	}
	service.auditor.Record(context, user.ID, audit.EventAccountLocked, "Too many failed logins", metadata)
	service.auditor.Record(context, user.ID, audit.EventSuspiciousActivity, "Repeated failed logins", metadata)
}

// completeLogin issues tokens and stamps the successful login.
func (service *Service) completeLogin(context context.Context, user *User) (*TokenBundle, error) {
	bundle, err := service.issueTokens(context, user)
	if err != nil {
		return nil, err
	}

	if err := service.users.RecordSuccessfulLogin(context, user.ID, service.now().UTC()); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "auth_record_login_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return bundle, nil
}

/*
issueTokens signs an access and refresh token pair bound to a new session.

Description: Session persistence is best-effort. When it fails the access
token still names the session, so the authenticator rejects it and the client
has to sign in again.

Parameters:
  - context: context.Context (client IP and user agent are read from it)
  - user: *User

Returns:
  - *TokenBundle: Transport-ready credentials
  - error: Signing failures
*/
func (service *Service) issueTokens(context context.Context, user *User) (*TokenBundle, error) {
	sessionID := uuid.New()

	access, err := service.tokens.IssueAccessToken(sec.AccessSubject{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refresh, err := service.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	now := service.now().UTC()
	client := ctxutil.GetClientInfo(context)

	session := &Session{
		ID:             sessionID,
		UserID:         user.ID,
		TokenHash:      sec.HashToken(refresh.Token),
		IPAddress:      client.IP,
		UserAgent:      client.UserAgent,
		ExpiresAt:      refresh.ExpiresAt,
		IsActive:       true,
		LastActivityAt: now,
		CreatedAt:      now,
	}

	if err := service.sessions.Create(context, session); err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "auth_session_create_failed",
			slog.String("user_id", user.ID),
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}

	return &TokenBundle{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    constants.TokenTypeBearer,
		ExpiresIn:    int64(service.tokens.AccessTTL() / time.Second),
		User:         user.Profile(),
	}, nil
}

func (service *Service) timingHash() string {
	service.dummyHashOnce.Do(func() {
		hash, err := service.hasher.Hash("vidshare-timing-equalizer")
		if err == nil {
			service.dummyHash = hash
		}
	})
	return service.dummyHash
}

// # Session Management

/*
Refresh issues a new access token for the session behind refreshToken.

Description: The refresh token is not rotated. The session must be active,
unexpired and owned by the token subject.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *RefreshResult: New access token
  - error: Unauthorized, SessionInvalid, NotFound or AccountDisabled
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, validate.RequiredError(FieldRefreshToken)
	}

	claims, err := service.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	session, err := service.sessions.FindByTokenHash(context, sec.HashToken(refreshToken))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.SessionInvalid()
		}
		return nil, fmt.Errorf("auth_service_session_lookup_failed: %w", err)
	}

	now := service.now()
	if !session.IsUsable(now) || session.UserID != claims.Subject {
		return nil, apperr.SessionInvalid()
	}

	user, err := service.users.FindByID(context, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_user_failed: %w", err)
	}
	if user.IsDeleted() {
		return nil, apperr.AccountDisabled()
	}

	access, err := service.tokens.IssueAccessToken(sec.AccessSubject{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		SessionID: session.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	if err := service.sessions.Touch(context, session.ID, now.UTC()); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "auth_session_touch_failed",
			slog.String("session_id", session.ID),
			slog.Any("error", err),
		)
	}

	service.auditor.Record(context, user.ID, audit.EventTokenRefreshed, "Access token refreshed", map[string]any{
		"session_id": session.ID,
	})

	return &RefreshResult{
		AccessToken: access.Token,
		TokenType:   constants.TokenTypeBearer,
		ExpiresIn:   int64(service.tokens.AccessTTL() / time.Second),
	}, nil
}

/*
Logout revokes every session of the user, signing out all devices.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Revocation failures
*/
func (service *Service) Logout(context context.Context, userID string) error {
	revoked, err := service.sessions.RevokeAll(context, userID)
	if err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	service.auditor.Record(context, userID, audit.EventLogout, "Signed out on all devices", map[string]any{
		"revoked_sessions": revoked,
	})

	return nil
}

// # Email Verification

/*
VerifyEmail confirms email ownership from the token sent at registration.

Description: The token shape is checked before any lookup, so malformed
input never reaches the database.

Parameters:
  - context: context.Context
  - token: string (64 lowercase hex)

Returns:
  - error: InvalidToken, TokenExpired or storage errors
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {
	if !sec.IsHex64(token) {
		return apperr.InvalidToken("Invalid verification token")
	}

	user, err := service.users.FindByVerificationTokenHash(context, sec.HashToken(token))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return apperr.InvalidToken("Invalid verification token")
		}
		return fmt.Errorf("auth_service_verify_lookup_failed: %w", err)
	}

	if user.VerificationExpiresAt != nil && !user.VerificationExpiresAt.After(service.now()) {
		return apperr.TokenExpired("Verification token has expired")
	}

	if err := service.users.MarkVerified(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_mark_verified_failed: %w", err)
	}

	service.auditor.Record(context, user.ID, audit.EventEmailVerified, "Email address verified", nil)

	return nil
}

/*
ResendVerification issues a fresh verification token, replacing the old one.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Conflict if already verified, or storage errors
*/
func (service *Service) ResendVerification(context context.Context, userID string) error {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return fmt.Errorf("auth_service_resend_lookup_failed: %w", err)
	}

	if user.IsVerified {
		return apperr.Conflict("Email already verified")
	}

	token, err := sec.GenerateSecureToken(constants.OpaqueTokenBytes)
	if err != nil {
		return fmt.Errorf("auth_service_verification_token_failed: %w", err)
	}

	expiresAt := service.now().UTC().Add(constants.VerificationTokenTTL)
	if err := service.users.SetVerificationToken(context, user.ID, sec.HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("auth_service_set_verification_failed: %w", err)
	}

	service.sendVerification(context, user, token)
	service.auditor.Record(context, user.ID, audit.EventVerificationResent, "Verification email resent", nil)

	return nil
}

func (service *Service) sendVerification(context context.Context, user *User, token string) {
	link := service.link("/verify-email", token)
	if err := service.mailer.SendVerification(context, user.Email, user.Username, link); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "auth_verification_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
}

// # Password Recovery

/*
RequestPasswordReset emails a reset link if the account exists.

Description: The result never reveals whether the email is registered. Only
a malformed email is reported.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: ValidationError only
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	email = normalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).
		MaxLen(FieldEmail, email, maxEmailLength).
		Email(FieldEmail, email)

	if err := validator.Err(); err != nil {
		return err
	}

	logger := ctxutil.GetLogger(context)

	user, err := service.users.FindByEmail(context, email)
	if err != nil {
		if !apperr.HasCode(err, apperr.CodeNotFound) {
			logger.ErrorContext(context, "auth_reset_lookup_failed", slog.Any("error", err))
		}
		return nil
	}
	if user.IsDeleted() {
		return nil
	}

	token, err := sec.GenerateSecureToken(constants.OpaqueTokenBytes)
	if err != nil {
		logger.ErrorContext(context, "auth_reset_token_failed", slog.Any("error", err))
		return nil
	}

	expiresAt := service.now().UTC().Add(constants.ResetTokenTTL)
	if err := service.users.SetResetToken(context, user.ID, sec.HashToken(token), expiresAt); err != nil {
		logger.ErrorContext(context, "auth_reset_token_store_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return nil
	}

	if err := service.mailer.SendPasswordReset(context, user.Email, user.Username, service.link("/reset-password", token)); err != nil {
		logger.WarnContext(context, "auth_reset_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	service.auditor.Record(context, user.ID, audit.EventPasswordResetRequested, "Password reset requested", nil)

	return nil
}

/*
ResetPassword sets a new password from a reset token and signs out every device.

Parameters:
  - context: context.Context
  - token: string (64 lowercase hex)
  - newPassword: string

Returns:
  - error: InvalidToken, TokenExpired, ValidationError or storage errors
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	if !sec.IsHex64(token) {
		return apperr.InvalidToken("Invalid or expired reset token")
	}

	user, err := service.users.FindByResetTokenHash(context, sec.HashToken(token))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return apperr.InvalidToken("Invalid or expired reset token")
		}
		return fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}
	if user.IsDeleted() {
		return apperr.InvalidToken("Invalid or expired reset token")
	}

	if user.ResetExpiresAt == nil || !user.ResetExpiresAt.After(service.now()) {
		if err := service.users.ClearResetToken(context, user.ID); err != nil {
			ctxutil.GetLogger(context).WarnContext(context, "auth_reset_token_clear_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		return apperr.TokenExpired("Reset token has expired")
	}

	validator := &validate.Validator{}
	validator.Required(FieldNewPassword, newPassword).
		Password(FieldNewPassword, newPassword, service.config.PasswordPolicy)

	if err := validator.Err(); err != nil {
		return err
	}

	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_failed: %w", err)
	}

	revoked, err := service.sessions.RevokeAll(context, user.ID)
	if err != nil {
		return fmt.Errorf("auth_service_reset_revoke_failed: %w", err)
	}

	service.auditor.Record(context, user.ID, audit.EventPasswordResetCompleted, "Password reset completed", map[string]any{
		"revoked_sessions": revoked,
	})

	return nil
}

// ChangePasswordInput carries a credential change by a signed-in member.
type ChangePasswordInput struct {
	UserID          string
	SessionID       string // Kept active; every other session is revoked.
	CurrentPassword string
	NewPassword     string
}

/*
ChangePassword replaces the password after re-checking the current one.

Description: Every session except the caller's is revoked, matching the
forced sign-out of a reset.

Parameters:
  - context: context.Context
  - input: ChangePasswordInput

Returns:
  - error: ValidationError, Unauthorized or storage errors
*/
func (service *Service) ChangePassword(context context.Context, input ChangePasswordInput) error {
	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		Password(FieldNewPassword, input.NewPassword, service.config.PasswordPolicy).
		Custom(FieldNewPassword, input.NewPassword != "" && input.NewPassword == input.CurrentPassword, "Must differ from the current password")

	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.users.FindByID(context, input.UserID)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_lookup_failed: %w", err)
	}

	if !service.hasher.Check(input.CurrentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	hashedPassword, err := service.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	revoked, err := service.sessions.RevokeOthers(context, user.ID, input.SessionID)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}

	service.auditor.Record(context, user.ID, audit.EventPasswordChanged, "Password changed", map[string]any{
		"revoked_sessions": revoked,
	})

	return nil
}

// # Account Lifecycle

/*
DeleteAccount soft-deletes the account and signs out every device.

Description: The row is kept for [constants.AccountDeletionGrace]; the
confirmation email states the restore deadline.

Parameters:
  - context: context.Context
  - userID: string
  - reason: string (optional)

Returns:
  - error: ValidationError or storage errors
*/
func (service *Service) DeleteAccount(context context.Context, userID, reason string) error {
	reason = strings.TrimSpace(reason)

	validator := &validate.Validator{}
	validator.MaxLen(FieldReason, reason, maxReasonLength)

	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return fmt.Errorf("auth_service_delete_lookup_failed: %w", err)
	}

	now := service.now().UTC()
	if err := service.users.SoftDelete(context, user.ID, now); err != nil {
		return fmt.Errorf("auth_service_soft_delete_failed: %w", err)
	}

	revoked, err := service.sessions.RevokeAll(context, user.ID)
	if err != nil {
		return fmt.Errorf("auth_service_delete_revoke_failed: %w", err)
	}

	restoreBefore := now.Add(constants.AccountDeletionGrace)
	if err := service.mailer.SendAccountDeletion(context, user.Email, user.Username, restoreBefore); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "auth_deletion_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	metadata := map[string]any{
		"revoked_sessions": revoked,
		"restore_before":   restoreBefore,
	}
	if reason != "" {
		metadata["reason"] = reason
	}
	service.auditor.Record(context, user.ID, audit.EventAccountDeletionRequested, "Account deletion requested", metadata)

	return nil
}

// # Helpers

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// link builds an application URL carrying a one-time token.
func (service *Service) link(path, token string) string {
	return strings.TrimRight(service.config.AppBaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}
