package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

// Source loads specialty and procedure reference data.
type Source interface {
	LoadEntries(ctx context.Context) ([]domain.CatalogEntry, error)
}

// Catalog loads its entries once per process and serves them read-only.
// A failed load is not remembered, so the next caller retries.
type Catalog struct {
	source Source
	logger zerolog.Logger

	mu      sync.Mutex
	loaded  bool
	entries []domain.CatalogEntry
	bySlug  map[string]domain.CatalogEntry
}

func New(source Source, logger zerolog.Logger) *Catalog {
	return &Catalog{
		source: source,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

func (c *Catalog) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	entries, err := c.source.LoadEntries(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	bySlug := make(map[string]domain.CatalogEntry, len(entries))
	kept := make([]domain.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Slug == "" {
			c.logger.Warn().Str("id", e.ID).Msg("catalog entry without slug skipped")
			continue
		}
		if _, dup := bySlug[e.Slug]; dup {
			c.logger.Warn().Str("slug", e.Slug).Msg("duplicate catalog slug skipped")
			continue
		}
		bySlug[e.Slug] = e
		kept = append(kept, e)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Kind != kept[j].Kind {
			return kept[i].Kind == domain.KindSpecialty
		}
		return kept[i].Name < kept[j].Name
	})

	c.entries = kept
	c.bySlug = bySlug
	c.loaded = true
	c.logger.Info().Int("entries", len(kept)).Msg("catalog loaded")
	return nil
}

// Entries returns specialties first, then procedures, each by name.
func (c *Catalog) Entries(ctx context.Context) ([]domain.CatalogEntry, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out, nil
}

func (c *Catalog) Lookup(ctx context.Context, slug string) (domain.CatalogEntry, error) {
	if err := c.load(ctx); err != nil {
		return domain.CatalogEntry{}, err
	}
	e, ok := c.bySlug[slug]
	if !ok {
		return domain.CatalogEntry{}, &domain.NotFoundError{Kind: "slug", ID: slug}
	}
	return e, nil
}
