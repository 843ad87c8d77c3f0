// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, TOTP) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces declared by the consumers.
package sec

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeRefresh marks refresh tokens in the "type" claim.
const TokenTypeRefresh = "refresh"

// ErrInvalidToken is returned for every token that fails decoding or
// verification. Callers treat it the same as "no credential".
var ErrInvalidToken = errors.New("sec: invalid token")

// AccessClaims represents the payload embedded inside a JWT Access Token.
//
// The embedded username and role are informational. The authenticator always
// reloads the account, so a role change takes effect on the next request.
type AccessClaims struct {
	jwt.RegisteredClaims

	Username  string `json:"username"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
}

// RefreshClaims represents the payload of a long-lived refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims

	Type string `json:"type"`
}

// AccessSubject is the identity data an access token is issued for.
type AccessSubject struct {
	UserID    string
	Username  string
	Role      UserRole
	SessionID string
}

// IssuedToken is a signed token together with its identifying metadata.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenConfig holds the settings of a [TokenService].
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService handles generation and verification of JWT tokens using HS256.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: jwt secret must not be empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}

	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source. Used by tests to move through expiry.
func (service *TokenService) WithClock(now func() time.Time) *TokenService {
	service.now = now
	return service
}

// AccessTTL returns the lifetime of access tokens.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// # Issuance

// IssueAccessToken creates a new JWT access token for a user.
func (service *TokenService) IssueAccessToken(subject AccessSubject) (IssuedToken, error) {
	tokenID, err := newTokenID()
	if err != nil {
		return IssuedToken{}, err
	}

	currentTime := service.now()
	expiresAt := currentTime.Add(service.accessTTL)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID,
		},
		Username:  subject.Username,
		Role:      string(subject.Role),
		SessionID: subject.SessionID,
	}

	signed, err := service.sign(claims)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{Token: signed, ID: tokenID, ExpiresAt: expiresAt}, nil
}

// IssueRefreshToken creates a new long-lived refresh token for a user.
func (service *TokenService) IssueRefreshToken(userID string) (IssuedToken, error) {
	tokenID, err := newTokenID()
	if err != nil {
		return IssuedToken{}, err
	}

	currentTime := service.now()
	expiresAt := currentTime.Add(service.refreshTTL)

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID,
		},
		Type: TokenTypeRefresh,
	}

	signed, err := service.sign(claims)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{Token: signed, ID: tokenID, ExpiresAt: expiresAt}, nil
}

func (service *TokenService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signedToken, nil
}

// # Verification

// VerifyAccessToken checks the signature and validity of an access token.
// Refresh tokens are rejected: they carry no session binding.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := service.parse(tokenString, claims); err != nil {
		return nil, err
	}

	if claims.Subject == "" || claims.ID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if err := service.checkExpiry(claims.RegisteredClaims); err != nil {
		return nil, err
	}

	return claims, nil
}

// VerifyRefreshToken checks the signature, expiry and type of a refresh token.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := service.parse(tokenString, claims); err != nil {
		return nil, err
	}

	if claims.Type != TokenTypeRefresh || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if err := service.checkExpiry(claims.RegisteredClaims); err != nil {
		return nil, err
	}

	return claims, nil
}

// parse verifies the signature with the algorithm pinned to HS256.
//
// Expiry is checked separately by [TokenService.checkExpiry] against the
// service clock, so the library's own time validation is disabled.
func (service *TokenService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	if issuer, _ := claims.GetIssuer(); service.issuer != "" && issuer != service.issuer {
		return ErrInvalidToken
	}

	return nil
}

// checkExpiry enforces a present exp claim strictly after the current time.
func (service *TokenService) checkExpiry(claims jwt.RegisteredClaims) error {
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	if !service.now().Before(claims.ExpiresAt.Time) {
		return ErrInvalidToken
	}
	return nil
}

// DecodeUnsafe decodes the payload without verifying the signature.
//
// It exists only to read hints such as "sub" or "type" before a verified check.
// The result must never be used as an authorization decision.
func (service *TokenService) DecodeUnsafe(tokenString string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// newTokenID returns 128 random bits as hex, used for the jti claim.
func newTokenID() (string, error) {
	buffer := make([]byte, 16)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("auth: failed to generate token id: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}
