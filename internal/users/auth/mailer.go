// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"
)

// # Outbound Notifications

// Mailer delivers account emails. Delivery is a side effect: the service logs
// and swallows every error a Mailer returns.
type Mailer interface {
	SendVerification(context context.Context, email, username, link string) error
	SendPasswordReset(context context.Context, email, username, link string) error
	SendAccountDeletion(context context.Context, email, username string, restoreBefore time.Time) error
}

// LogMailer is a [Mailer] that writes messages to the structured log instead
// of sending them. It is the default until an email provider is wired.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a [LogMailer].
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendVerification logs the verification link.
func (mailer *LogMailer) SendVerification(context context.Context, email, username, link string) error {
	mailer.logger.InfoContext(context, "mail_verification_queued",
		slog.String("to", email),
		slog.String("username", username),
		slog.String("link", link),
	)
	return nil
}

// SendPasswordReset logs the password reset link.
func (mailer *LogMailer) SendPasswordReset(context context.Context, email, username, link string) error {
	mailer.logger.InfoContext(context, "mail_password_reset_queued",
		slog.String("to", email),
		slog.String("username", username),
		slog.String("link", link),
	)
	return nil
}

// SendAccountDeletion logs the deletion notice and its restore deadline.
func (mailer *LogMailer) SendAccountDeletion(context context.Context, email, username string, restoreBefore time.Time) error {
	mailer.logger.InfoContext(context, "mail_account_deletion_queued",
		slog.String("to", email),
		slog.String("username", username),
		slog.Time("restore_before", restoreBefore),
	)
	return nil
}
