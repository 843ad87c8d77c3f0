// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/vidshare/internal/platform/postgres"
	"github.com/taibuivan/vidshare/internal/platform/database/schema"
	"github.com/taibuivan/vidshare/internal/users/auth"
)

// PostgresSessionRepository implements [SessionRepository] on users.session.
type PostgresSessionRepository struct {
	db postgres.Querier
}

// NewSessionRepository creates a new Postgres implementation for session listing.
func NewSessionRepository(db postgres.Querier) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

/*
FindActiveByUserID retrieves all live device sessions for a user.

Parameters:
  - context: context.Context
  - userID: string
  - now: time.Time

Returns:
  - []auth.Session: Sessions without token hashes, newest first
  - error: Database retrieval failures
*/
func (repository *PostgresSessionRepository) FindActiveByUserID(context context.Context, userID string, now time.Time) ([]auth.Session, error) {
	table := schema.UserSession
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1 AND %s AND %s > $2
		ORDER BY %s DESC`,
		strings.Join(table.PublicColumns(), ", "),
		table.Table,
		table.UserID, table.IsActive, table.ExpiresAt,
		table.CreatedAt,
	)

	rows, err := repository.db.Query(context, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_active_failed: %w", err)
	}

	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (auth.Session, error) {
		var session auth.Session
		err := row.Scan(
			&session.ID,
			&session.UserID,
			&session.IPAddress,
			&session.UserAgent,
			&session.ExpiresAt,
			&session.IsActive,
			&session.LastActivityAt,
			&session.CreatedAt,
		)
		return session, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_scan_active_failed: %w", err)
	}

	return sessions, nil
}

/*
Revoke deactivates a single session owned by userID.

Parameters:
  - context: context.Context
  - userID: string (Security: validation of ownership)
  - sessionID: string

Returns:
  - bool: Whether a live session was revoked
  - error: Update failures
*/
func (repository *PostgresSessionRepository) Revoke(context context.Context, userID, sessionID string) (bool, error) {
	table := schema.UserSession
	query := fmt.Sprintf(`UPDATE %s SET %s = FALSE WHERE %s = $1 AND %s = $2 AND %s`,
		table.Table, table.IsActive, table.ID, table.UserID, table.IsActive)

	tag, err := repository.db.Exec(context, query, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("postgres_session_repo_revoke_failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
