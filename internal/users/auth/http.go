// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/vidshare/internal/platform/middleware"
	requestutil "github.com/taibuivan/vidshare/internal/platform/request"
	"github.com/taibuivan/vidshare/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the user lifecycle entry points (registration, login,
// two-factor, recovery) and the credential operations of signed-in members.
// It expects [middleware.Authenticate] to run before it.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register, /login, /2fa/verify-login, /refresh : Obtain tokens.
//   - POST /forgot-password, /reset-password, GET /verify-email : Recovery.
//   - Everything else requires a bearer token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/2fa/verify-login", handler.verifyTwoFactorLogin)
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)
	router.Get("/verify-email", handler.verifyEmail)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
		r.Post("/logout", handler.logout)
		r.Post("/resend-verification", handler.resendVerification)
		r.Post("/change-password", handler.changePassword)
		r.Post("/delete-account", handler.deleteAccount)
		r.Post("/2fa/enable", handler.enableTwoFactor)
		r.Post("/2fa/confirm", handler.confirmTwoFactor)
		r.Post("/2fa/disable", handler.disableTwoFactor)
	})

	// Requires an enabled second factor
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireTwoFactor)
		r.Post("/2fa/backup-codes", handler.regenerateBackupCodes)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyLoginRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type deleteAccountRequest struct {
	Reason string `json:"reason"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

// # Response Payloads

type twoFactorChallengeResponse struct {
	RequiresTwoFactor bool   `json:"requires_2fa"`
	UserID            string `json:"user_id"`
}

type backupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// # Public Handlers

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (Username, Email, Password)

Response:
  - 201: TokenBundle: The new member is signed in
  - 400: VALIDATION_ERROR
  - 409: CONFLICT: Username or Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	bundle, err := handler.authService.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, bundle)
}

/*
Login authenticates a user by email and password.

POST /api/v1/auth/login

Response:
  - 200: TokenBundle, or {requires_2fa: true, user_id} when 2FA is enabled
  - 401: INVALID_CREDENTIALS
  - 403: ACCOUNT_DISABLED
  - 423: ACCOUNT_LOCKED
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if result.Kind == LoginRequiresTwoFactor {
		respond.OK(writer, twoFactorChallengeResponse{RequiresTwoFactor: true, UserID: result.UserID})
		return
	}

	respond.OK(writer, result.Tokens)
}

/*
VerifyTwoFactorLogin completes a login that requires a second factor.

POST /api/v1/auth/2fa/verify-login

Response:
  - 200: TokenBundle
  - 401: UNAUTHORIZED: Invalid code or missing challenge
  - 429: RATE_LIMITED: Too many invalid codes
*/
func (handler *Handler) verifyTwoFactorLogin(writer http.ResponseWriter, request *http.Request) {
	var input verifyLoginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	bundle, err := handler.authService.VerifyTwoFactorLogin(request.Context(), input.UserID, input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, bundle)
}

/*
Refresh issues a new access token using a valid refresh token.

POST /api/v1/auth/refresh

Response:
  - 200: RefreshResult
  - 401: UNAUTHORIZED | SESSION_INVALID
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
ForgotPassword starts password recovery.

POST /api/v1/auth/forgot-password

Response:
  - 200: Generic message, whether or not the email is registered
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "If an account exists for this email, a reset link has been sent")
}

/*
ResetPassword sets a new password from an emailed token.

POST /api/v1/auth/reset-password

Response:
  - 200: Password updated, all sessions revoked
  - 400: INVALID_TOKEN | TOKEN_EXPIRED | VALIDATION_ERROR
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password has been reset")
}

/*
VerifyEmail confirms a user's email ownership.

GET /api/v1/auth/verify-email?token=

Response:
  - 200: Email verified
  - 400: INVALID_TOKEN | TOKEN_EXPIRED
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	token := request.URL.Query().Get(FieldToken)

	if err := handler.authService.VerifyEmail(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Email verified")
}

// # Protected Handlers

// me returns the authenticated identity.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, identity)
}

/*
Logout revokes every session of the caller.

POST /api/v1/auth/logout
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), identity.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Signed out on all devices")
}

// resendVerification sends a new verification email.
func (handler *Handler) resendVerification(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResendVerification(request.Context(), identity.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Verification email sent")
}

/*
ChangePassword replaces the caller's password.

POST /api/v1/auth/change-password

Response:
  - 200: Password changed, other sessions revoked
  - 400: VALIDATION_ERROR
  - 401: UNAUTHORIZED: Current password mismatch
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(request.Context(), ChangePasswordInput{
		UserID:          identity.ID,
		SessionID:       identity.SessionID,
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.NewPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password changed")
}

// deleteAccount schedules the caller's account for deletion.
func (handler *Handler) deleteAccount(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input deleteAccountRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.DeleteAccount(request.Context(), identity.ID, input.Reason); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Account scheduled for deletion")
}

// # Two-Factor Handlers

/*
EnableTwoFactor starts TOTP enrollment.

POST /api/v1/auth/2fa/enable

Response:
  - 200: TwoFactorSetup (secret, qr_code_url, otpauth_url, backup_codes)
  - 409: CONFLICT: Already enabled
*/
func (handler *Handler) enableTwoFactor(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setup, err := handler.authService.EnableTwoFactor(request.Context(), identity.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, setup)
}

// confirmTwoFactor finishes enrollment with a code from the authenticator app.
func (handler *Handler) confirmTwoFactor(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input codeRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ConfirmTwoFactor(request.Context(), identity.ID, input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Two-factor authentication enabled")
}

// disableTwoFactor turns 2FA off after a password check.
func (handler *Handler) disableTwoFactor(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input passwordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.DisableTwoFactor(request.Context(), identity.ID, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Two-factor authentication disabled")
}

// regenerateBackupCodes issues a new batch of backup codes.
func (handler *Handler) regenerateBackupCodes(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input codeRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	codes, err := handler.authService.RegenerateBackupCodes(request.Context(), identity.ID, input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, backupCodesResponse{BackupCodes: codes})
}
