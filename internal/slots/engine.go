package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hackgods/registry-scheduling/internal/catalog"
	"github.com/hackgods/registry-scheduling/internal/domain"
	"github.com/hackgods/registry-scheduling/internal/metrics"
)

type SlotLister interface {
	ListSlots(ctx context.Context, facilityID, doctorID string, from, to time.Time) ([]domain.Slot, error)
}

type TargetResolver interface {
	Resolve(ctx context.Context, slug string) (catalog.Target, error)
}

type EngineConfig struct {
	Window   time.Duration
	TTL      time.Duration
	Location *time.Location
}

// Engine answers "what can be booked for this slug" from the cache, falling
// back to the registry on a miss.
type Engine struct {
	resolver TargetResolver
	lister   SlotLister
	cache    Cache
	cfg      EngineConfig
	logger   zerolog.Logger
	metrics  *metrics.SchedulingMetrics
	group    singleflight.Group
	now      func() time.Time
}

func NewEngine(resolver TargetResolver, lister SlotLister, cache Cache, cfg EngineConfig, logger zerolog.Logger, m *metrics.SchedulingMetrics) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Window <= 0 {
		cfg.Window = 14 * 24 * time.Hour
	}
	return &Engine{
		resolver: resolver,
		lister:   lister,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.With().Str("component", "slot_engine").Logger(),
		metrics:  m,
		now:      time.Now,
	}
}

func (e *Engine) Location() *time.Location { return e.cfg.Location }

func (e *Engine) Now() time.Time { return e.now() }

func (e *Engine) Cache() Cache { return e.cache }

// GetAvailableSlots returns the slots offered for slug, sorted by start time.
func (e *Engine) GetAvailableSlots(ctx context.Context, slug string) ([]domain.Slot, error) {
	cached, ok, err := e.cache.Get(ctx, slug)
	if err != nil {
		e.logger.Warn().Err(err).Str("slug", slug).Msg("slot cache read failed, loading from registry")
	}
	if ok && err == nil {
		e.metrics.ObserveSlotCache(true)
		SortSlots(cached, e.now(), e.cfg.Location)
		return cached, nil
	}
	e.metrics.ObserveSlotCache(false)

	v, err, _ := e.group.Do(slug, func() (any, error) {
		return e.load(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	loaded := v.([]domain.Slot)
	out := make([]domain.Slot, len(loaded))
	copy(out, loaded)
	return out, nil
}

// Refresh reloads slug from the registry and replaces its cached list.
func (e *Engine) Refresh(ctx context.Context, slug string) (int, error) {
	slots, err := e.load(ctx, slug)
	if err != nil {
		return 0, err
	}
	return len(slots), nil
}

func (e *Engine) load(ctx context.Context, slug string) ([]domain.Slot, error) {
	target, err := e.resolver.Resolve(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := e.now()
	slots, err := e.lister.ListSlots(ctx, target.FacilityID(), target.Doctor.ID, now, now.Add(e.cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("list slots for %s: %w", slug, err)
	}

	for i := range slots {
		slots[i].Slug = slug
		slots[i].Specialty = target.Entry.Name
		if slots[i].DoctorID == "" {
			slots[i].DoctorID = target.Doctor.ID
		}
		if slots[i].DoctorName == "" {
			slots[i].DoctorName = target.Doctor.Name
		}
		if slots[i].FacilityID == "" {
			slots[i].FacilityID = target.FacilityID()
		}
	}
	SortSlots(slots, now, e.cfg.Location)

	if err := e.cache.Put(ctx, slug, slots, e.cfg.TTL); err != nil {
		e.logger.Warn().Err(err).Str("slug", slug).Msg("slot cache write failed")
	}
	e.logger.Debug().Str("slug", slug).Int("slots", len(slots)).Msg("slots loaded from registry")
	return slots, nil
}

// ProfileSlots is GetAvailableSlots minus what conflicts with booked.
func (e *Engine) ProfileSlots(ctx context.Context, slug string, booked []domain.Appointment) ([]domain.Slot, error) {
	slots, err := e.GetAvailableSlots(ctx, slug)
	if err != nil {
		return nil, err
	}
	return FilterAvailable(slots, booked, e.now(), e.cfg.Location, e.logger), nil
}

// IsOffered reports whether slotID is still in slug's cached list. A cold
// cache answers true.
func (e *Engine) IsOffered(ctx context.Context, slug, slotID string) (bool, error) {
	cached, ok, err := e.cache.Get(ctx, slug)
	if err != nil {
		return false, fmt.Errorf("check slot %s: %w", slotID, err)
	}
	if !ok {
		return true, nil
	}
	for _, s := range cached {
		if s.ID == slotID {
			return true, nil
		}
	}
	return false, nil
}

// Slot returns the offered slot with slotID from slug's list, loading the
// list when the cache is cold.
func (e *Engine) Slot(ctx context.Context, slug, slotID string) (domain.Slot, bool, error) {
	offered, err := e.GetAvailableSlots(ctx, slug)
	if err != nil {
		return domain.Slot{}, false, err
	}
	for _, s := range offered {
		if s.ID == slotID {
			return s, true, nil
		}
	}
	return domain.Slot{}, false, nil
}
