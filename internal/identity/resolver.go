package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/domain"
	"github.com/hackgods/registry-scheduling/internal/metrics"
	"github.com/hackgods/registry-scheduling/internal/registry"
)

// PatientSearcher is the slice of the registry gateway the resolver needs.
type PatientSearcher interface {
	SearchPatients(ctx context.Context, q registry.PatientQuery) ([]domain.Patient, error)
}

type Resolver struct {
	searcher   PatientSearcher
	facilityID string
	now        func() time.Time
	logger     zerolog.Logger
	metrics    *metrics.SchedulingMetrics
}

// NewResolver builds a resolver; facilityID scopes registry searches and may be empty.
func NewResolver(searcher PatientSearcher, facilityID string, logger zerolog.Logger, m *metrics.SchedulingMetrics) *Resolver {
	return &Resolver{
		searcher:   searcher,
		facilityID: facilityID,
		now:        time.Now,
		logger:     logger.With().Str("component", "identity").Logger(),
		metrics:    m,
	}
}

// ResolveByPhone probes the registry with each phone candidate in order and
// stops at the first one that matches. A failing probe is logged and
// skipped; only when every probe fails is an error returned.
func (r *Resolver) ResolveByPhone(ctx context.Context, rawPhone string) ([]domain.Profile, error) {
	candidates := PhoneCandidates(rawPhone)
	if len(candidates) == 0 {
		return nil, &domain.NotFoundError{Kind: "patient"}
	}

	var probeErrs []error
	for _, phone := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		patients, err := r.searcher.SearchPatients(ctx, registry.PatientQuery{Phone: phone, FacilityID: r.facilityID})
		if err != nil {
			r.metrics.ObserveIdentityProbe("error")
			r.logger.Warn().Err(err).Str("candidate", phone).Msg("patient search probe failed")
			probeErrs = append(probeErrs, fmt.Errorf("candidate %s: %w", phone, err))
			continue
		}
		if len(patients) == 0 {
			r.metrics.ObserveIdentityProbe("empty")
			continue
		}

		r.metrics.ObserveIdentityProbe("match")
		now := r.now()
		profiles := make([]domain.Profile, 0, len(patients))
		for _, p := range patients {
			profiles = append(profiles, ProfileFromPatient(p, now))
		}
		r.logger.Info().Str("candidate", phone).Int("profiles", len(profiles)).Msg("patient resolved")
		return profiles, nil
	}

	if len(probeErrs) == len(candidates) {
		return nil, fmt.Errorf("identity: all %d phone candidates failed: %w", len(candidates), errors.Join(probeErrs...))
	}
	return nil, &domain.NotFoundError{Kind: "patient", ID: strings.TrimSpace(rawPhone)}
}

// ProfileFromPatient maps a registry record to a session profile.
func ProfileFromPatient(p domain.Patient, now time.Time) domain.Profile {
	return domain.Profile{
		ID:           p.ID,
		LastName:     p.LastName,
		FirstName:    p.FirstName,
		MiddleName:   p.MiddleName,
		FullName:     FullName(p.LastName, p.FirstName, p.MiddleName),
		BirthDate:    p.BirthDate,
		Age:          Age(p.BirthDate, now),
		Phone:        p.Phone,
		Appointments: []domain.Appointment{},
	}
}

// FullName joins the non-empty name parts with single spaces.
func FullName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Age is the number of birthdays that have occurred up to now.
func Age(birth, now time.Time) int {
	if birth.IsZero() {
		return 0
	}
	now = now.In(birth.Location())
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
