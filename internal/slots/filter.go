package slots

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/datetime"
	"github.com/hackgods/registry-scheduling/internal/domain"
)

// ConflictWindow is the minimum distance between two appointments of one
// patient. Appointments exactly ConflictWindow apart do not conflict.
const ConflictWindow = 30 * time.Minute

func slotInstant(s domain.Slot, now time.Time, loc *time.Location) (time.Time, bool) {
	t, err := datetime.Resolve(s.StartsAt, s.DateTime, now, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func within(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < ConflictWindow
}

// FindConflict returns the booked appointment that blocks slot: either the
// same slot id or a start time closer than ConflictWindow. Dates that cannot
// be parsed only conflict by id.
func FindConflict(slot domain.Slot, booked []domain.Appointment, now time.Time, loc *time.Location) (*domain.Appointment, bool) {
	at, slotOK := slotInstant(slot, now, loc)
	for i := range booked {
		a := &booked[i]
		if a.Status == domain.StatusCancelled {
			continue
		}
		if a.ID != "" && a.ID == slot.ID {
			return a, true
		}
		if !slotOK {
			continue
		}
		bt, ok := slotInstant(a.Slot, now, loc)
		if !ok {
			continue
		}
		if within(at, bt) {
			return a, true
		}
	}
	return nil, false
}

// FilterAvailable drops the slots a patient with the given bookings cannot take.
func FilterAvailable(slots []domain.Slot, booked []domain.Appointment, now time.Time, loc *time.Location, logger zerolog.Logger) []domain.Slot {
	out := make([]domain.Slot, 0, len(slots))
	for _, s := range slots {
		if _, ok := slotInstant(s, now, loc); !ok {
			logger.Warn().Str("slot_id", s.ID).Str("date_time", s.DateTime).Msg("unparseable slot date, keeping slot")
		}
		if existing, ok := FindConflict(s, booked, now, loc); ok {
			logger.Debug().
				Str("slot_id", s.ID).
				Str("appointment_id", existing.ID).
				Msg("slot filtered by existing appointment")
			continue
		}
		out = append(out, s)
	}
	return out
}

// SortSlots orders slots by start time; undated slots go last in text order.
func SortSlots(slots []domain.Slot, now time.Time, loc *time.Location) {
	sort.SliceStable(slots, func(i, j int) bool {
		return before(slots[i], slots[j], now, loc)
	})
}

func SortAppointments(appts []domain.Appointment, now time.Time, loc *time.Location) {
	sort.SliceStable(appts, func(i, j int) bool {
		return before(appts[i].Slot, appts[j].Slot, now, loc)
	})
}

func before(a, b domain.Slot, now time.Time, loc *time.Location) bool {
	at, aok := slotInstant(a, now, loc)
	bt, bok := slotInstant(b, now, loc)
	switch {
	case aok && bok:
		if at.Equal(bt) {
			return a.ID < b.ID
		}
		return at.Before(bt)
	case aok != bok:
		return aok
	default:
		return a.DateTime < b.DateTime
	}
}
