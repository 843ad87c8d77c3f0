// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Auth) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/caarlos0/env/v11"
)

// InsecureJWTSecret is the development fallback for JWT_SECRET.
// [Config.Validate] refuses to start a production server with it.
const InsecureJWTSecret = "vidshare-dev-secret-change-me"

// # Configuration Schema

// Config holds all runtime configuration for the Vidshare API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// AppBaseURL is used to build links in outgoing emails.
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Cross-Origin Resource Sharing
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"vidshare.app"`

	// TrustedProxies lists the CIDRs whose X-Real-IP / X-Forwarded-For headers
	// are honored. Empty means the direct peer address is always used.
	TrustedProxies []netip.Prefix `env:"TRUSTED_PROXIES" envSeparator:","`

	Auth AuthConfig
}

// AuthConfig groups the token, lockout and credential policy settings.
type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"        envDefault:"vidshare-dev-secret-change-me"`
	JWTIssuer       string        `env:"JWT_ISSUER"        envDefault:"vidshare.app"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"3600s"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"604800s"`

	// Password login lockout
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginLockout     time.Duration `env:"LOGIN_LOCKOUT"      envDefault:"15m"`

	// Two-factor verification lockout
	TwoFactorMaxAttempts int           `env:"TWOFA_MAX_ATTEMPTS" envDefault:"3"`
	TwoFactorLockout     time.Duration `env:"TWOFA_LOCKOUT"      envDefault:"15m"`

	TOTPIssuer    string `env:"TOTP_ISSUER"      envDefault:"Vidshare"`
	TOTPQRBaseURL string `env:"TOTP_QR_BASE_URL" envDefault:"https://api.qrserver.com/v1/create-qr-code/?size=200x200&data="`

	// Password policy
	PasswordMinLength     int  `env:"PASSWORD_MIN_LENGTH"     envDefault:"8"`
	PasswordRequireUpper  bool `env:"PASSWORD_REQUIRE_UPPER"  envDefault:"true"`
	PasswordRequireLower  bool `env:"PASSWORD_REQUIRE_LOWER"  envDefault:"true"`
	PasswordRequireDigit  bool `env:"PASSWORD_REQUIRE_DIGIT"  envDefault:"true"`
	PasswordRequireSymbol bool `env:"PASSWORD_REQUIRE_SYMBOL" envDefault:"false"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings that would make the auth core unsafe or unusable.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() && c.Auth.JWTSecret == InsecureJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.Auth.RefreshTokenTTL < c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL"))
	}
	if c.Auth.LoginMaxAttempts < 1 || c.Auth.TwoFactorMaxAttempts < 1 {
		errs = append(errs, errors.New("lockout thresholds must be at least 1"))
	}
	if c.Auth.PasswordMinLength < 6 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be at least 6"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// UsesInsecureSecret reports whether the development JWT secret is in use.
func (c *Config) UsesInsecureSecret() bool {
	return c.Auth.JWTSecret == InsecureJWTSecret
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
