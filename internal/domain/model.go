package domain

import "time"

type AppointmentStatus string

const (
	StatusOffered   AppointmentStatus = "offered"
	StatusBooked    AppointmentStatus = "booked"
	StatusCancelled AppointmentStatus = "cancelled"
)

type CatalogKind string

const (
	KindSpecialty CatalogKind = "specialty"
	KindProcedure CatalogKind = "procedure"
)

// Slot is a bookable offer issued by the registry. DateTime keeps the textual
// form the slot arrived with; StartsAt is filled when the registry adapter
// could decode it.
type Slot struct {
	ID         string    `json:"id"`
	DateTime   string    `json:"date_time"`
	StartsAt   time.Time `json:"starts_at,omitempty"`
	Slug       string    `json:"slug,omitempty"`
	Specialty  string    `json:"specialty,omitempty"`
	DoctorID   string    `json:"doctor_id,omitempty"`
	DoctorName string    `json:"doctor_name,omitempty"`
	FacilityID string    `json:"facility_id,omitempty"`
	Address    string    `json:"address,omitempty"`
	Room       string    `json:"room,omitempty"`
	Ticket     string    `json:"ticket,omitempty"`
}

// Appointment is a slot bound to a patient profile.
type Appointment struct {
	Slot
	ProfileID string            `json:"profile_id"`
	Status    AppointmentStatus `json:"status"`
	BookedAt  time.Time         `json:"booked_at,omitempty"`
}

// Patient is a raw registry patient record.
type Patient struct {
	ID         string
	LastName   string
	FirstName  string
	MiddleName string
	BirthDate  time.Time
	Phone      string
}

// Profile is a patient identity held by the calling session.
type Profile struct {
	ID           string        `json:"id"`
	LastName     string        `json:"last_name"`
	FirstName    string        `json:"first_name"`
	MiddleName   string        `json:"middle_name,omitempty"`
	FullName     string        `json:"full_name"`
	BirthDate    time.Time     `json:"birth_date,omitempty"`
	Age          int           `json:"age"`
	Phone        string        `json:"phone"`
	Appointments []Appointment `json:"appointments"`
}

type CatalogEntry struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Slug                string      `json:"slug"`
	Kind                CatalogKind `json:"kind"`
	RequiresReferral    bool        `json:"requires_referral"`
	FacilityID          string      `json:"facility_id"`
	RegistrySpecialtyID string      `json:"registry_specialty_id"`
}

type District struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Facility struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	DistrictID string `json:"district_id,omitempty"`
}

type Specialty struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FreeSlots int    `json:"free_slots"`
}

type Doctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FreeSlots int    `json:"free_slots"`
}
