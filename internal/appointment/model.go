package appointment

import "time"

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

// EventLog is one audit row for a booking lifecycle change.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID string
	ProfileID     string
	Payload       []byte
	CreatedAt     time.Time
}
