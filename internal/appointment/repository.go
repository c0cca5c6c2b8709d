package appointment

import (
	"context"
)

// Repository persists the booking audit trail. Appointments themselves live
// in the registry.
type Repository interface {
	InsertEvent(ctx context.Context, ev EventLog) error
	ListEvents(ctx context.Context, profileID string, limit int) ([]EventLog, error)
}
