package api

import (
	"encoding/json"
	"time"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

type ResolvePatientRequest struct {
	Phone string `json:"phone"`
}

// BookAppointmentRequest names the slot by slug and slot_id, either at the
// top level or inside a slot object as listed by GET /slots/{slug}. Other
// slot fields are ignored.
type BookAppointmentRequest struct {
	Slot   *domain.Slot `json:"slot,omitempty"`
	Slug   string       `json:"slug,omitempty"`
	SlotID string       `json:"slot_id,omitempty"`
}

type ProfilesResponse struct {
	Profiles []domain.Profile `json:"profiles"`
}

type SlotsResponse struct {
	Slug      string        `json:"slug"`
	ProfileID string        `json:"profile_id,omitempty"`
	Slots     []domain.Slot `json:"slots"`
}

type AppointmentsResponse struct {
	ProfileID    string               `json:"profile_id"`
	Appointments []domain.Appointment `json:"appointments"`
}

type CatalogResponse struct {
	Entries []domain.CatalogEntry `json:"entries"`
}

type EventResponse struct {
	ID            int64           `json:"id"`
	EventType     string          `json:"event_type"`
	AppointmentID string          `json:"appointment_id"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ErrorResponse struct {
	Error    string              `json:"error"`
	Details  string              `json:"details,omitempty"`
	Conflict *domain.Appointment `json:"conflict,omitempty"`
}
