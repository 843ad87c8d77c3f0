// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/vidshare/internal/platform/database/schema"
	"github.com/taibuivan/vidshare/internal/platform/postgres"
)

// PostgresStore implements [Store] and [Finder] on the system.auditlog table.
type PostgresStore struct {
	db postgres.Querier
}

// NewPostgresStore creates a new Postgres implementation of the audit [Store].
func NewPostgresStore(db postgres.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

var insertEventQuery = fmt.Sprintf(
	`INSERT INTO %s (%s) VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8)`,
	schema.SystemAuditLog.Table,
	strings.Join(schema.SystemAuditLog.Columns(), ", "),
)

/*
Append inserts a single event row.

Parameters:
  - context: context.Context
  - event: *Event

Returns:
  - error: Serialization or database errors
*/
func (store *PostgresStore) Append(context context.Context, event *Event) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("postgres_audit_store_encode_failed: %w", err)
	}

	_, err = store.db.Exec(context, insertEventQuery,
		event.ID,
		event.UserID,
		string(event.Type),
		event.Description,
		event.IPAddress,
		event.UserAgent,
		encoded,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_audit_store_append_failed: %w", err)
	}

	return nil
}

/*
ListByUser pages through a user's events using a COUNT(*) OVER() window so
the total is returned without a second query.

Parameters:
  - context: context.Context
  - userID: string
  - filter: Filter
  - limit, offset: int

Returns:
  - []*Event: Newest first
  - int: Total matching rows
  - error: Database or decoding errors
*/
func (store *PostgresStore) ListByUser(context context.Context, userID string, filter Filter, limit, offset int) ([]*Event, int, error) {
	table := schema.SystemAuditLog

	var queryBuilder strings.Builder
	args := []any{userID}

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s = $1`,
		strings.Join(table.Columns(), ", "),
		table.Table,
		table.UserID,
	))

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, eventType := range filter.Types {
			types[i] = string(eventType)
		}
		args = append(args, types)
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = ANY($%d)", table.EventType, len(args)))
	}

	args = append(args, limit, offset)
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s DESC, %s DESC LIMIT $%d OFFSET $%d",
		table.CreatedAt, table.ID, len(args)-1, len(args)))

	rows, err := store.db.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_store_list_failed: %w", err)
	}
	defer rows.Close()

	total := 0
	events := make([]*Event, 0, limit)
	for rows.Next() {
		event, count, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_audit_store_scan_failed: %w", err)
		}
		total = count
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_store_rows_failed: %w", err)
	}

	return events, total, nil
}

func scanEvent(row pgx.Row) (*Event, int, error) {
	var (
		event     Event
		eventType string
		userID    *string
		metadata  []byte
		total     int
	)

	err := row.Scan(
		&event.ID,
		&userID,
		&eventType,
		&event.Description,
		&event.IPAddress,
		&event.UserAgent,
		&metadata,
		&event.CreatedAt,
		&total,
	)
	if err != nil {
		return nil, 0, err
	}

	event.Type = EventType(eventType)
	if userID != nil {
		event.UserID = *userID
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, 0, err
		}
	}

	return &event, total, nil
}
