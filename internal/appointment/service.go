package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/contacts"
	"github.com/hackgods/registry-scheduling/internal/domain"
	"github.com/hackgods/registry-scheduling/internal/metrics"
	redisclient "github.com/hackgods/registry-scheduling/internal/redis"
	"github.com/hackgods/registry-scheduling/internal/slots"
)

var (
	ErrSlotAlreadyBooked = errors.New("slot is no longer offered")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
)

// Registry is the part of the registry gateway the lifecycle needs.
type Registry interface {
	ReserveSlot(ctx context.Context, facilityID, slotID, patientID string) error
	CancelAppointment(ctx context.Context, facilityID, patientID, appointmentID string) error
	ListPatientAppointments(ctx context.Context, facilityID, patientID string) ([]domain.Appointment, error)
}

type PatientResolver interface {
	ResolveByPhone(ctx context.Context, rawPhone string) ([]domain.Profile, error)
}

type Deps struct {
	Registry Registry
	Patients PatientResolver
	Contacts contacts.Store
	Engine   *slots.Engine
	Cache    slots.Cache
	Locker   redisclient.Locker
	Repo     Repository
	Profiles *ProfileStore
	// FacilityID is used when a slot or history lookup carries no facility.
	FacilityID string
	Logger     zerolog.Logger
	Metrics    *metrics.SchedulingMetrics
}

type Service struct {
	registry   Registry
	patients   PatientResolver
	contacts   contacts.Store
	engine     *slots.Engine
	cache      slots.Cache
	locker     redisclient.Locker
	repo       Repository
	profiles   *ProfileStore
	facilityID string
	logger     zerolog.Logger
	metrics    *metrics.SchedulingMetrics
}

func NewService(d Deps) *Service {
	if d.Profiles == nil {
		d.Profiles = NewProfileStore()
	}
	if d.Locker == nil {
		d.Locker = redisclient.NewLocalLocker()
	}
	if d.Cache == nil && d.Engine != nil {
		d.Cache = d.Engine.Cache()
	}
	return &Service{
		registry:   d.Registry,
		patients:   d.Patients,
		contacts:   d.Contacts,
		engine:     d.Engine,
		cache:      d.Cache,
		locker:     d.Locker,
		repo:       d.Repo,
		profiles:   d.Profiles,
		facilityID: d.FacilityID,
		logger:     d.Logger.With().Str("component", "appointment_service").Logger(),
		metrics:    d.Metrics,
	}
}

func (s *Service) now() time.Time { return s.engine.Now() }

func (s *Service) loc() *time.Location { return s.engine.Location() }

func (s *Service) facilityFor(slot domain.Slot) string {
	if slot.FacilityID != "" {
		return slot.FacilityID
	}
	return s.facilityID
}

// ResolvePatientByPhone finds every registry profile registered to phone and
// loads each profile's booked appointments.
func (s *Service) ResolvePatientByPhone(ctx context.Context, phone string) ([]domain.Profile, error) {
	profiles, err := s.patients.ResolveByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	for i := range profiles {
		history, err := s.registry.ListPatientAppointments(ctx, s.facilityID, profiles[i].ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("profile_id", profiles[i].ID).Msg("failed to load appointment history")
			profiles[i].Appointments = []domain.Appointment{}
			continue
		}
		for j := range history {
			history[j].ProfileID = profiles[i].ID
		}
		slots.SortAppointments(history, s.now(), s.loc())
		profiles[i].Appointments = history
	}

	s.profiles.Put(profiles...)
	return profiles, nil
}

// ResolveContact resolves the profiles behind a messaging user's stored phone.
func (s *Service) ResolveContact(ctx context.Context, userID string) ([]domain.Profile, error) {
	if s.contacts == nil {
		return nil, &domain.UnsupportedOperationError{Op: "contact lookup"}
	}
	c, err := s.contacts.Lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.ResolvePatientByPhone(ctx, c.Phone)
}

func (s *Service) Profile(ctx context.Context, profileID string) (domain.Profile, error) {
	p, ok := s.profiles.Get(profileID)
	if !ok {
		return domain.Profile{}, &domain.NotFoundError{Kind: "profile", ID: profileID}
	}
	return p, nil
}

func (s *Service) GetAvailableSlots(ctx context.Context, slug string) ([]domain.Slot, error) {
	return s.engine.GetAvailableSlots(ctx, slug)
}

// GetAvailableSlotsForProfile hides slots that collide with the profile's bookings.
func (s *Service) GetAvailableSlotsForProfile(ctx context.Context, slug, profileID string) ([]domain.Slot, error) {
	p, err := s.Profile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.engine.ProfileSlots(ctx, slug, p.Appointments)
}

// BookAppointment reserves the offered slot identified by slot.Slug and
// slot.ID for the profile. Date, doctor and facility come from the offered
// list, not from the caller. The reservation is attempted at most once; an
// ambiguous transport failure is returned to the caller, never retried.
func (s *Service) BookAppointment(ctx context.Context, profileID string, slot domain.Slot) (*domain.Appointment, error) {
	if _, err := s.Profile(ctx, profileID); err != nil {
		return nil, err
	}
	if slot.Slug == "" || slot.ID == "" {
		return nil, &domain.NotFoundError{Kind: "slot", ID: slot.ID}
	}

	offered, ok, err := s.engine.Slot(ctx, slot.Slug, slot.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.ObserveBooking("not_offered")
		return nil, &domain.NotFoundError{Kind: "slot", ID: slot.ID}
	}
	slot = offered

	// conflict check, reservation and recording happen under the profile lock
	release, err := s.profiles.Lock(ctx, profileID)
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := s.Profile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if existing, ok := slots.FindConflict(slot, p.Appointments, s.now(), s.loc()); ok {
		s.metrics.ObserveBooking("conflict")
		return nil, &domain.ConflictError{Existing: *existing}
	}

	facilityID := s.facilityFor(slot)

	err = s.locker.WithSlotLock(ctx, slot.ID, func(lockCtx context.Context) error {
		stillOffered, err := s.engine.IsOffered(lockCtx, slot.Slug, slot.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("slot_id", slot.ID).Msg("availability re-check failed, deferring to registry")
		} else if !stillOffered {
			return ErrSlotAlreadyBooked
		}

		if err := s.registry.ReserveSlot(lockCtx, facilityID, slot.ID, p.ID); err != nil {
			var trErr *domain.TransportError
			if errors.As(err, &trErr) {
				if invErr := s.cache.Invalidate(lockCtx, slot.Slug); invErr != nil {
					s.logger.Warn().Err(invErr).Str("slug", slot.Slug).Msg("failed to invalidate slot cache")
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveBooking(bookingOutcome(err))
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		s.logger.Warn().Err(err).Str("profile_id", p.ID).Str("slot_id", slot.ID).Msg("booking failed")
		return nil, err
	}

	appt := domain.Appointment{
		Slot:      slot,
		ProfileID: p.ID,
		Status:    domain.StatusBooked,
		BookedAt:  s.now(),
	}
	if appt.FacilityID == "" {
		appt.FacilityID = facilityID
	}

	updErr := s.profiles.Update(p.ID, func(stored *domain.Profile) error {
		stored.Appointments = append(stored.Appointments, appt)
		slots.SortAppointments(stored.Appointments, s.now(), s.loc())
		return nil
	})
	if updErr != nil {
		s.logger.Error().Err(updErr).Str("profile_id", p.ID).Msg("booked appointment not recorded on profile")
	}

	if err := s.cache.Withdraw(ctx, slot.ID); err != nil {
		s.logger.Warn().Err(err).Str("slot_id", slot.ID).Msg("failed to withdraw booked slot")
	}

	s.logEvent(ctx, EventAppointmentBooked, appt, map[string]any{
		"slug":        slot.Slug,
		"date_time":   slot.DateTime,
		"facility_id": appt.FacilityID,
		"doctor_id":   slot.DoctorID,
	})
	s.metrics.ObserveBooking("booked")
	s.logger.Info().Str("profile_id", p.ID).Str("slot_id", slot.ID).Str("date_time", slot.DateTime).Msg("appointment booked")

	return &appt, nil
}

func bookingOutcome(err error) string {
	var (
		regErr *domain.RegistryError
		trErr  *domain.TransportError
		auErr  *domain.AuthError
	)
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return "busy"
	case errors.Is(err, ErrSlotAlreadyBooked):
		return "already_booked"
	case errors.As(err, &regErr):
		return "registry_error"
	case errors.As(err, &auErr):
		return "auth_error"
	case errors.As(err, &trErr):
		return "transport_error"
	default:
		return "error"
	}
}

// CancelAppointment releases a booked appointment of the profile.
func (s *Service) CancelAppointment(ctx context.Context, profileID, appointmentID string) error {
	release, err := s.profiles.Lock(ctx, profileID)
	if err != nil {
		return err
	}
	defer release()

	p, err := s.Profile(ctx, profileID)
	if err != nil {
		return err
	}

	var appt *domain.Appointment
	for i := range p.Appointments {
		if p.Appointments[i].ID == appointmentID {
			appt = &p.Appointments[i]
			break
		}
	}
	if appt == nil {
		s.metrics.ObserveCancellation("not_found")
		return &domain.NotFoundError{Kind: "appointment", ID: appointmentID}
	}

	if err := s.registry.CancelAppointment(ctx, s.facilityFor(appt.Slot), p.ID, appointmentID); err != nil {
		s.metrics.ObserveCancellation(cancelOutcome(err))
		s.logger.Warn().Err(err).Str("profile_id", p.ID).Str("appointment_id", appointmentID).Msg("cancellation failed")
		return err
	}

	updErr := s.profiles.Update(p.ID, func(stored *domain.Profile) error {
		kept := stored.Appointments[:0]
		for _, a := range stored.Appointments {
			if a.ID != appointmentID {
				kept = append(kept, a)
			}
		}
		stored.Appointments = kept
		return nil
	})
	if updErr != nil {
		s.logger.Error().Err(updErr).Str("profile_id", p.ID).Msg("cancelled appointment not removed from profile")
	}

	if err := s.cache.Restore(ctx, appt.Slot); err != nil {
		s.logger.Warn().Err(err).Str("slot_id", appt.ID).Msg("failed to restore cancelled slot")
	}

	cancelled := *appt
	cancelled.Status = domain.StatusCancelled
	s.logEvent(ctx, EventAppointmentCancelled, cancelled, map[string]any{
		"slug":      appt.Slug,
		"date_time": appt.DateTime,
	})
	s.metrics.ObserveCancellation("cancelled")
	s.logger.Info().Str("profile_id", p.ID).Str("appointment_id", appointmentID).Msg("appointment cancelled")

	return nil
}

func cancelOutcome(err error) string {
	var (
		regErr *domain.RegistryError
		trErr  *domain.TransportError
	)
	switch {
	case errors.Is(err, domain.ErrUnsupported):
		return "unsupported"
	case errors.As(err, &regErr):
		return "registry_error"
	case errors.As(err, &trErr):
		return "transport_error"
	default:
		return "error"
	}
}

// ListAppointmentHistory returns the profile's booked appointments in time order.
func (s *Service) ListAppointmentHistory(ctx context.Context, profileID string) ([]domain.Appointment, error) {
	p, err := s.Profile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return p.Appointments, nil
}

// ListEvents returns the audit trail of a profile, newest first.
func (s *Service) ListEvents(ctx context.Context, profileID string, limit int) ([]EventLog, error) {
	if s.repo == nil {
		return []EventLog{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	events, err := s.repo.ListEvents(ctx, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Service) logEvent(ctx context.Context, eventType string, appt domain.Appointment, payload map[string]any) {
	if s.repo == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appt.ID,
		ProfileID:     appt.ProfileID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Str("appointment_id", appt.ID).Msg("failed to insert event log")
	}
}
