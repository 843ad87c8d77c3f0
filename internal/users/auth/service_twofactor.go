// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/ctxutil"
	"github.com/taibuivan/vidshare/internal/platform/sec"
	"github.com/taibuivan/vidshare/internal/platform/validate"
	"github.com/taibuivan/vidshare/internal/users/audit"
)

// TwoFactorSetup is shown once when enrollment starts.
type TwoFactorSetup struct {
	Secret      string   `json:"secret"`
	QRCodeURL   string   `json:"qr_code_url"`
	OTPAuthURL  string   `json:"otpauth_url"`
	BackupCodes []string `json:"backup_codes"`
}

// # Enrollment

/*
EnableTwoFactor starts TOTP enrollment.

Description: Re-entering an unconfirmed enrollment returns the same secret.
A fresh batch of backup codes replaces the previous one on every call.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *TwoFactorSetup: Secret, provisioning links and plain backup codes
  - error: Conflict if already enabled, or storage errors
*/
func (service *Service) EnableTwoFactor(context context.Context, userID string) (*TwoFactorSetup, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_2fa_lookup_failed: %w", err)
	}

	var secret string
	switch user.Enrollment() {
	case EnrollmentEnabled:
		return nil, apperr.Conflict("Two-factor authentication is already enabled")
	case EnrollmentSecretIssued:
		secret = user.TwoFASecret
	default:
		secret, err = service.totp.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("auth_service_2fa_secret_failed: %w", err)
		}
		if err := service.users.SetTwoFactorSecret(context, user.ID, secret); err != nil {
			return nil, fmt.Errorf("auth_service_2fa_store_secret_failed: %w", err)
		}
	}

	codes, err := service.replaceBackupCodes(context, user.ID)
	if err != nil {
		return nil, err
	}

	uri := service.totp.ProvisioningURI(secret, user.Email)

	service.auditor.Record(context, user.ID, audit.EventTwoFactorSetupStarted, "Two-factor setup started", nil)

	return &TwoFactorSetup{
		Secret:      secret,
		QRCodeURL:   service.totp.QRCodeURL(uri),
		OTPAuthURL:  uri,
		BackupCodes: codes,
	}, nil
}

/*
ConfirmTwoFactor enables 2FA once the member proves the authenticator works.

Parameters:
  - context: context.Context
  - userID: string
  - code: string (6 digits)

Returns:
  - error: ValidationError, Conflict or storage errors
*/
func (service *Service) ConfirmTwoFactor(context context.Context, userID, code string) error {
	if err := requireCode(code); err != nil {
		return err
	}

	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return fmt.Errorf("auth_service_2fa_lookup_failed: %w", err)
	}

	switch user.Enrollment() {
	case EnrollmentEnabled:
		return apperr.Conflict("Two-factor authentication is already enabled")
	case EnrollmentNotConfigured:
		return apperr.Conflict("Two-factor setup has not been started")
	}

	if !service.totp.VerifyCode(user.TwoFASecret, code, service.now()) {
		return validate.FieldError(FieldCode, "Invalid verification code")
	}

	if err := service.users.EnableTwoFactor(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_2fa_enable_failed: %w", err)
	}

	service.auditor.Record(context, user.ID, audit.EventTwoFactorEnabled, "Two-factor authentication enabled", nil)

	return nil
}

/*
DisableTwoFactor turns 2FA off after re-checking the password.

Description: The secret and every backup code are removed, returning the
account to the not-configured state.

Parameters:
  - context: context.Context
  - userID: string
  - password: string

Returns:
  - error: ValidationError, Conflict, Unauthorized or storage errors
*/
func (service *Service) DisableTwoFactor(context context.Context, userID, password string) error {
	if password == "" {
		return validate.RequiredError(FieldPassword)
	}

	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return fmt.Errorf("auth_service_2fa_lookup_failed: %w", err)
	}

	if user.Enrollment() != EnrollmentEnabled {
		return apperr.Conflict("Two-factor authentication is not enabled")
	}

	if !service.hasher.Check(password, user.PasswordHash) {
		return apperr.Unauthorized("Password is incorrect")
	}

	if err := service.users.DisableTwoFactor(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_2fa_disable_failed: %w", err)
	}

	if err := service.backupCodes.DeleteAll(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_2fa_delete_codes_failed: %w", err)
	}

	if err := service.attempts.Reset(context, twoFactorAttemptKey(user.ID)); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "auth_2fa_counter_reset_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	service.auditor.Record(context, user.ID, audit.EventTwoFactorDisabled, "Two-factor authentication disabled", nil)

	return nil
}

/*
RegenerateBackupCodes replaces the backup codes, gated by a current TOTP code.

Parameters:
  - context: context.Context
  - userID: string
  - code: string (6 digits)

Returns:
  - []string: New plain backup codes
  - error: ValidationError, Conflict or storage errors
*/
func (service *Service) RegenerateBackupCodes(context context.Context, userID, code string) ([]string, error) {
	if err := requireCode(code); err != nil {
		return nil, err
	}

	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_2fa_lookup_failed: %w", err)
	}

	if user.Enrollment() != EnrollmentEnabled {
		return nil, apperr.Conflict("Two-factor authentication is not enabled")
	}

	if !service.totp.VerifyCode(user.TwoFASecret, code, service.now()) {
		return nil, validate.FieldError(FieldCode, "Invalid verification code")
	}

	codes, err := service.replaceBackupCodes(context, user.ID)
	if err != nil {
		return nil, err
	}

	service.auditor.Record(context, user.ID, audit.EventBackupCodesRegenerated, "Backup codes regenerated", nil)

	return codes, nil
}

// replaceBackupCodes generates a batch and persists only the hashes.
func (service *Service) replaceBackupCodes(context context.Context, userID string) ([]string, error) {
	codes, err := service.totp.GenerateBackupCodes(sec.BackupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("auth_service_backup_codes_failed: %w", err)
	}

	hashes := make([]string, len(codes))
	for index, code := range codes {
		hashes[index] = sec.HashToken(code)
	}

	if err := service.backupCodes.ReplaceAll(context, userID, hashes); err != nil {
		return nil, fmt.Errorf("auth_service_store_backup_codes_failed: %w", err)
	}

	return codes, nil
}

// # Login Challenge

/*
VerifyTwoFactorLogin completes a login that stopped at the second factor.

Flow:
 1. A pending challenge from the password step is required.
 2. The lockout counter is checked before any code comparison.
 3. The code is tried as TOTP, then as an unused backup code.
 4. Failure advances the counter; the last allowed failure locks 2FA.
 5. Success clears the counter and challenge, then issues tokens.

Parameters:
  - context: context.Context
  - userID: string
  - code: string (TOTP or backup code)

Returns:
  - *TokenBundle: Tokens for the new session
  - error: ValidationError, Unauthorized, RateLimited or storage errors
*/
func (service *Service) VerifyTwoFactorLogin(context context.Context, userID, code string) (*TokenBundle, error) {
	code = strings.TrimSpace(code)

	validator := &validate.Validator{}
	validator.Required(FieldUserID, userID).
		UUID(FieldUserID, userID).
		Required(FieldCode, code)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	pending, err := service.challenges.Exists(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_2fa_challenge_lookup_failed: %w", err)
	}
	if !pending {
		return nil, apperr.Unauthorized("Two-factor challenge expired or missing")
	}

	key := twoFactorAttemptKey(userID)

	failures, remaining, err := service.attempts.Status(context, key)
	if err != nil {
		return nil, fmt.Errorf("auth_service_2fa_status_failed: %w", err)
	}
	if failures >= service.config.TwoFactorMaxAttempts {
		return nil, apperr.RateLimited(retryAfterSeconds(remaining.Seconds()))
	}

	user, err := service.users.FindByID(context, userID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("Two-factor challenge expired or missing")
		}
		return nil, fmt.Errorf("auth_service_2fa_lookup_failed: %w", err)
	}
	if user.IsDeleted() {
		return nil, apperr.AccountDisabled()
	}
	if user.Enrollment() != EnrollmentEnabled {
		return nil, apperr.Unauthorized("Two-factor challenge expired or missing")
	}

	method := "totp"
	matched := service.totp.VerifyCode(user.TwoFASecret, code, service.now())
	if !matched {
		method = "backup_code"
		matched, err = service.consumeBackupCode(context, user.ID, code)
		if err != nil {
			return nil, err
		}
	}

	if !matched {
		return nil, service.registerTwoFactorFailure(context, user.ID, key)
	}

	logger := ctxutil.GetLogger(context)
	if err := service.attempts.Reset(context, key); err != nil {
		logger.WarnContext(context, "auth_2fa_counter_reset_failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	if err := service.challenges.Delete(context, user.ID); err != nil {
		logger.WarnContext(context, "auth_2fa_challenge_delete_failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	service.auditor.Record(context, user.ID, audit.EventTwoFactorVerified, "Second factor accepted", map[string]any{
		"method": method,
	})
	if method == "backup_code" {
		service.auditor.Record(context, user.ID, audit.EventBackupCodeUsed, "Backup code consumed", nil)
	}

	bundle, err := service.completeLogin(context, user)
	if err != nil {
		return nil, err
	}

	service.auditor.Record(context, user.ID, audit.EventLoginSuccess, "Two-factor login", nil)

	return bundle, nil
}

// registerTwoFactorFailure advances the counter and returns the error to report.
func (service *Service) registerTwoFactorFailure(context context.Context, userID, key string) error {
	lockout := service.config.TwoFactorLockout

	count, err := service.attempts.RegisterFailure(context, key, service.config.TwoFactorMaxAttempts, lockout, lockout)
	if err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "auth_2fa_failure_counter_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	service.auditor.Record(context, userID, audit.EventTwoFactorFailed, "Invalid two-factor code", map[string]any{
		"attempts": count,
	})

	if count >= service.config.TwoFactorMaxAttempts {
		service.auditor.Record(context, userID, audit.EventTwoFactorLocked, "Too many invalid two-factor codes", map[string]any{
			"attempts": count,
		})
	}

	return apperr.Unauthorized("Invalid two-factor code")
}

/*
consumeBackupCode matches code against the unused codes of the user.

Description: Every stored hash is compared in constant time without an early
exit. The match is then marked used with a conditional update, so two
concurrent requests cannot both spend it.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - bool: true if a code was consumed
  - error: Storage errors
*/
func (service *Service) consumeBackupCode(context context.Context, userID, code string) (bool, error) {
	candidate := sec.HashToken(sec.NormalizeBackupCode(code))

	codes, err := service.backupCodes.FindUnused(context, userID)
	if err != nil {
		return false, fmt.Errorf("auth_service_backup_codes_lookup_failed: %w", err)
	}

	var matchID string
	for _, stored := range codes {
		if sec.ConstantTimeEqual(stored.CodeHash, candidate) {
			matchID = stored.ID
		}
	}
	if matchID == "" {
		return false, nil
	}

	consumed, err := service.backupCodes.MarkUsed(context, matchID, service.now().UTC())
	if err != nil {
		return false, fmt.Errorf("auth_service_backup_code_consume_failed: %w", err)
	}

	return consumed, nil
}

// # Helpers

func twoFactorAttemptKey(userID string) string {
	return twoFactorAttemptKeyPrefix + userID
}

func requireCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return validate.RequiredError(FieldCode)
	}
	return nil
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(seconds float64) int {
	if seconds <= 0 {
		return 1
	}
	return int(math.Ceil(seconds))
}
