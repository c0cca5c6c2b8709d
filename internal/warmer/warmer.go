// Package warmer periodically reloads availability for every catalog slug so
// that patient-facing reads are served from the cache.
package warmer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

type EntryLister interface {
	Entries(ctx context.Context) ([]domain.CatalogEntry, error)
}

type Refresher interface {
	Refresh(ctx context.Context, slug string) (int, error)
}

// Forgetter drops a cached slug resolution so a doctor change is picked up.
type Forgetter interface {
	Forget(slug string)
}

type Result struct {
	Slugs  int
	Slots  int
	Failed int
}

type Warmer struct {
	entries EntryLister
	engine  Refresher
	slugs   Forgetter
	logger  zerolog.Logger
}

func New(entries EntryLister, engine Refresher, slugs Forgetter, logger zerolog.Logger) *Warmer {
	return &Warmer{
		entries: entries,
		engine:  engine,
		slugs:   slugs,
		logger:  logger.With().Str("component", "slot_warmer").Logger(),
	}
}

// Run refreshes slugs one by one. A failing slug is logged and counted; the
// run itself only fails when the catalog cannot be read.
func (w *Warmer) Run(ctx context.Context) (Result, error) {
	entries, err := w.entries.Entries(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load catalog: %w", err)
	}

	var res Result
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Slugs++
		if w.slugs != nil {
			w.slugs.Forget(e.Slug)
		}

		n, err := w.engine.Refresh(ctx, e.Slug)
		if err != nil {
			res.Failed++
			w.logger.Warn().Err(err).Str("slug", e.Slug).Msg("failed to refresh slots")
			continue
		}
		res.Slots += n
	}
	return res, nil
}
