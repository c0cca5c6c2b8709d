package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/hackgods/registry-scheduling/internal/db"
)

type PgRepository struct {
	pool db.Querier
}

func NewPgRepository(pool db.Querier) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, profile_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.AppointmentID, ev.ProfileID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

// ListEvents returns the newest events of a profile first.
func (r *PgRepository) ListEvents(ctx context.Context, profileID string, limit int) ([]EventLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, appointment_id, profile_id, payload, created_at
		FROM event_logs
		WHERE profile_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("query event logs: %w", err)
	}
	defer rows.Close()

	var result []EventLog
	for rows.Next() {
		var ev EventLog
		if err := rows.Scan(
			&ev.ID,
			&ev.EventType,
			&ev.AppointmentID,
			&ev.ProfileID,
			&ev.Payload,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event log: %w", err)
		}
		result = append(result, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
