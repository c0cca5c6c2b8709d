package db

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		user_id      TEXT PRIMARY KEY,
		phone        TEXT NOT NULL,
		display_name TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_entries (
		id                    TEXT PRIMARY KEY,
		name                  TEXT NOT NULL,
		slug                  TEXT NOT NULL UNIQUE,
		kind                  TEXT NOT NULL CHECK (kind IN ('specialty', 'procedure')),
		requires_referral     BOOLEAN NOT NULL DEFAULT false,
		facility_id           TEXT NOT NULL,
		registry_specialty_id TEXT NOT NULL,
		active                BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id             BIGSERIAL PRIMARY KEY,
		event_type     TEXT NOT NULL,
		appointment_id TEXT NOT NULL,
		profile_id     TEXT NOT NULL,
		payload        JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS event_logs_profile_created_idx ON event_logs (profile_id, created_at DESC)`,
}

// EnsureSchema creates the tables the service reads and writes. Statements
// are idempotent.
func EnsureSchema(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
