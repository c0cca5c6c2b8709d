package catalog

import (
	"context"
	"fmt"

	"github.com/hackgods/registry-scheduling/internal/db"
	"github.com/hackgods/registry-scheduling/internal/domain"
)

type PgSource struct {
	pool db.Querier
}

func NewPgSource(pool db.Querier) *PgSource {
	return &PgSource{pool: pool}
}

func (s *PgSource) LoadEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, slug, kind, requires_referral, facility_id, registry_specialty_id
		FROM catalog_entries
		WHERE active
		ORDER BY kind, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog entries: %w", err)
	}
	defer rows.Close()

	var result []domain.CatalogEntry
	for rows.Next() {
		var e domain.CatalogEntry
		var kind string
		if err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.Slug,
			&kind,
			&e.RequiresReferral,
			&e.FacilityID,
			&e.RegistrySpecialtyID,
		); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		e.Kind = domain.CatalogKind(kind)
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
