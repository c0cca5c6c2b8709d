package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

type DoctorLister interface {
	ListDoctors(ctx context.Context, facilityID, specialtyID string) ([]domain.Doctor, error)
}

// DoctorSelector picks the doctor whose schedule backs a catalog entry.
type DoctorSelector interface {
	Select(entry domain.CatalogEntry, doctors []domain.Doctor) (domain.Doctor, bool)
}

// FirstDoctor selects the first doctor the registry lists.
type FirstDoctor struct{}

func (FirstDoctor) Select(_ domain.CatalogEntry, doctors []domain.Doctor) (domain.Doctor, bool) {
	if len(doctors) == 0 {
		return domain.Doctor{}, false
	}
	return doctors[0], true
}

// Target is the registry coordinates behind a slug.
type Target struct {
	Entry  domain.CatalogEntry
	Doctor domain.Doctor
}

func (t Target) FacilityID() string  { return t.Entry.FacilityID }
func (t Target) SpecialtyID() string { return t.Entry.RegistrySpecialtyID }

// Resolver maps slugs to registry targets and caches the result per process.
type Resolver struct {
	catalog  *Catalog
	doctors  DoctorLister
	selector DoctorSelector
	logger   zerolog.Logger

	mu      sync.Mutex
	targets map[string]Target
}

func NewResolver(c *Catalog, doctors DoctorLister, selector DoctorSelector, logger zerolog.Logger) *Resolver {
	if selector == nil {
		selector = FirstDoctor{}
	}
	return &Resolver{
		catalog:  c,
		doctors:  doctors,
		selector: selector,
		logger:   logger.With().Str("component", "slug_resolver").Logger(),
		targets:  make(map[string]Target),
	}
}

func (r *Resolver) Resolve(ctx context.Context, slug string) (Target, error) {
	r.mu.Lock()
	if t, ok := r.targets[slug]; ok {
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	entry, err := r.catalog.Lookup(ctx, slug)
	if err != nil {
		return Target{}, err
	}

	doctors, err := r.doctors.ListDoctors(ctx, entry.FacilityID, entry.RegistrySpecialtyID)
	if err != nil {
		return Target{}, fmt.Errorf("list doctors for %s: %w", slug, err)
	}
	doctor, ok := r.selector.Select(entry, doctors)
	if !ok {
		return Target{}, &domain.NotFoundError{Kind: "doctor", ID: slug}
	}

	t := Target{Entry: entry, Doctor: doctor}
	r.mu.Lock()
	if existing, ok := r.targets[slug]; ok {
		t = existing
	} else {
		r.targets[slug] = t
	}
	r.mu.Unlock()

	r.logger.Debug().Str("slug", slug).Str("doctor_id", t.Doctor.ID).Msg("slug resolved")
	return t, nil
}

// Forget drops a cached target so the next Resolve reloads the doctor list.
func (r *Resolver) Forget(slug string) {
	r.mu.Lock()
	delete(r.targets, slug)
	r.mu.Unlock()
}
