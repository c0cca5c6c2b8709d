package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/registry-scheduling/internal/appointment"
	"github.com/hackgods/registry-scheduling/internal/domain"
)

// SchedulingService is what the HTTP surface needs from appointment.Service.
type SchedulingService interface {
	ResolvePatientByPhone(ctx context.Context, phone string) ([]domain.Profile, error)
	ResolveContact(ctx context.Context, userID string) ([]domain.Profile, error)
	GetAvailableSlots(ctx context.Context, slug string) ([]domain.Slot, error)
	GetAvailableSlotsForProfile(ctx context.Context, slug, profileID string) ([]domain.Slot, error)
	BookAppointment(ctx context.Context, profileID string, slot domain.Slot) (*domain.Appointment, error)
	CancelAppointment(ctx context.Context, profileID, appointmentID string) error
	ListAppointmentHistory(ctx context.Context, profileID string) ([]domain.Appointment, error)
	ListEvents(ctx context.Context, profileID string, limit int) ([]appointment.EventLog, error)
}

type CatalogLister interface {
	Entries(ctx context.Context) ([]domain.CatalogEntry, error)
}

// RegistryBrowser exposes the registry reference lists as they are.
type RegistryBrowser interface {
	ListDistricts(ctx context.Context) ([]domain.District, error)
	ListFacilities(ctx context.Context, districtID string) ([]domain.Facility, error)
	ListSpecialties(ctx context.Context, facilityID string) ([]domain.Specialty, error)
	ListDoctors(ctx context.Context, facilityID, specialtyID string) ([]domain.Doctor, error)
}

func resolvePatientHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResolvePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.Phone) == "" {
			writeError(w, http.StatusBadRequest, "invalid_phone", "phone is required")
			return
		}

		profiles, err := svc.ResolvePatientByPhone(r.Context(), req.Phone)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ProfilesResponse{Profiles: profiles})
	}
}

func contactProfilesHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := svc.ResolveContact(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ProfilesResponse{Profiles: profiles})
	}
}

func catalogHandler(c CatalogLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := c.Entries(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CatalogResponse{Entries: entries})
	}
}

func slotsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		profileID := r.URL.Query().Get("profile_id")

		var (
			slots []domain.Slot
			err   error
		)
		if profileID != "" {
			slots, err = svc.GetAvailableSlotsForProfile(r.Context(), slug, profileID)
		} else {
			slots, err = svc.GetAvailableSlots(r.Context(), slug)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SlotsResponse{Slug: slug, ProfileID: profileID, Slots: slots})
	}
}

func listAppointmentsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID := chi.URLParam(r, "profileID")
		appts, err := svc.ListAppointmentHistory(r.Context(), profileID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AppointmentsResponse{ProfileID: profileID, Appointments: appts})
	}
}

func bookAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID := chi.URLParam(r, "profileID")

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		// only the slot identity is taken from the body; the service books
		// the slot as the registry offered it
		ref := domain.Slot{ID: req.SlotID, Slug: req.Slug}
		if req.Slot != nil {
			if ref.ID == "" {
				ref.ID = req.Slot.ID
			}
			if ref.Slug == "" {
				ref.Slug = req.Slot.Slug
			}
		}
		if ref.ID == "" || ref.Slug == "" {
			writeError(w, http.StatusBadRequest, "invalid_slot", "slug and slot_id are required")
			return
		}

		appt, err := svc.BookAppointment(r.Context(), profileID, ref)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func cancelAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.CancelAppointment(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "appointmentID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listEventsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
				return
			}
			limit = n
		}

		events, err := svc.ListEvents(r.Context(), chi.URLParam(r, "profileID"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := make([]EventResponse, 0, len(events))
		for _, ev := range events {
			resp = append(resp, EventResponse{
				ID:            ev.ID,
				EventType:     ev.EventType,
				AppointmentID: ev.AppointmentID,
				Payload:       json.RawMessage(ev.Payload),
				CreatedAt:     ev.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func districtsHandler(reg RegistryBrowser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := reg.ListDistricts(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func facilitiesHandler(reg RegistryBrowser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := reg.ListFacilities(r.Context(), chi.URLParam(r, "districtID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func specialtiesHandler(reg RegistryBrowser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := reg.ListSpecialties(r.Context(), chi.URLParam(r, "facilityID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func doctorsHandler(reg RegistryBrowser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := reg.ListDoctors(r.Context(), chi.URLParam(r, "facilityID"), chi.URLParam(r, "specialtyID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
