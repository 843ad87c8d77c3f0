// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Vidshare authentication API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire security primitives, repositories and services.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/vidshare/internal/api"
	"github.com/taibuivan/vidshare/internal/platform/config"
	"github.com/taibuivan/vidshare/internal/platform/constants"
	"github.com/taibuivan/vidshare/internal/platform/migration"
	pgstore "github.com/taibuivan/vidshare/internal/platform/postgres"
	redisstore "github.com/taibuivan/vidshare/internal/platform/redis"
	"github.com/taibuivan/vidshare/internal/platform/sec"
	"github.com/taibuivan/vidshare/internal/users/account"
	"github.com/taibuivan/vidshare/internal/users/audit"
	"github.com/taibuivan/vidshare/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	if cfg.UsesInsecureSecret() {
		log.Warn("insecure_jwt_secret_in_use", slog.String("environment", cfg.Environment))
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security Primitives ────────────────────────────────────────────
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.JWTIssuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	must(log, err, "initialize jwt service")

	totp := sec.NewTOTP(cfg.Auth.TOTPIssuer, cfg.Auth.TOTPQRBaseURL)
	hasher := sec.NewPasswordHasher(cfg.Auth.BcryptCost)
	policy := sec.PasswordPolicy{
		MinLength:     cfg.Auth.PasswordMinLength,
		RequireUpper:  cfg.Auth.PasswordRequireUpper,
		RequireLower:  cfg.Auth.PasswordRequireLower,
		RequireDigit:  cfg.Auth.PasswordRequireDigit,
		RequireSymbol: cfg.Auth.PasswordRequireSymbol,
	}

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	auditStore := audit.NewPostgresStore(pool)
	ledger := audit.NewLedger(auditStore, log)

	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)

	authService := auth.NewService(auth.Dependencies{
		Users:       userRepository,
		Sessions:    sessionRepository,
		BackupCodes: auth.NewBackupCodeRepository(pool),
		Attempts:    auth.NewAttemptLimiter(rdb),
		Challenges:  auth.NewChallengeStore(rdb),
		Tokens:      tokens,
		Hasher:      hasher,
		TOTP:        totp,
		Audit:       ledger,
		Mailer:      auth.NewLogMailer(log),
	}, auth.ServiceConfig{
		AppBaseURL:           cfg.AppBaseURL,
		LoginMaxAttempts:     cfg.Auth.LoginMaxAttempts,
		LoginLockout:         cfg.Auth.LoginLockout,
		TwoFactorMaxAttempts: cfg.Auth.TwoFactorMaxAttempts,
		TwoFactorLockout:     cfg.Auth.TwoFactorLockout,
		PasswordPolicy:       policy,
	})

	accountService := account.NewService(userRepository, account.NewSessionRepository(pool), auditStore, ledger)
	authenticator := auth.NewAuthenticator(tokens, userRepository, sessionRepository)

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, authenticator, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(accountService),
	})

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String(constants.FieldApp, constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
