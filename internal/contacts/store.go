package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/registry-scheduling/internal/db"
	"github.com/hackgods/registry-scheduling/internal/domain"
)

// Contact is what the messaging side knows about a user.
type Contact struct {
	UserID      string `json:"user_id"`
	Phone       string `json:"phone"`
	DisplayName string `json:"display_name,omitempty"`
}

// Store is read-only from the scheduling core.
type Store interface {
	Lookup(ctx context.Context, userID string) (Contact, error)
}

type PgStore struct {
	pool db.Querier
}

func NewPgStore(pool db.Querier) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Lookup(ctx context.Context, userID string) (Contact, error) {
	var c Contact
	var displayName *string
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, phone, display_name
		FROM contacts
		WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.Phone, &displayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, &domain.NotFoundError{Kind: "contact", ID: userID}
		}
		return Contact{}, fmt.Errorf("lookup contact: %w", err)
	}
	if displayName != nil {
		c.DisplayName = *displayName
	}
	if strings.TrimSpace(c.Phone) == "" {
		return Contact{}, &domain.NotFoundError{Kind: "contact phone", ID: userID}
	}
	return c, nil
}
