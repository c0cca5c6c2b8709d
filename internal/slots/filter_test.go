package slots

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

var (
	testNow = time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)
	tenAM   = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
)

func slotAt(id string, at time.Time) domain.Slot {
	return domain.Slot{ID: id, StartsAt: at, DateTime: at.Format("2006-01-02 15:04")}
}

func bookedAt(id string, at time.Time) domain.Appointment {
	return domain.Appointment{Slot: slotAt(id, at), Status: domain.StatusBooked}
}

func ids(slots []domain.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.ID)
	}
	return out
}

func TestFilterAvailableWindowBoundary(t *testing.T) {
	booked := []domain.Appointment{bookedAt("a", tenAM)}
	slots := []domain.Slot{
		slotAt("exact-after", tenAM.Add(1800000*time.Millisecond)),
		slotAt("just-inside-after", tenAM.Add(1799999*time.Millisecond)),
		slotAt("exact-before", tenAM.Add(-1800000*time.Millisecond)),
		slotAt("just-inside-before", tenAM.Add(-1799999*time.Millisecond)),
		slotAt("same-time", tenAM),
	}

	got := FilterAvailable(slots, booked, testNow, time.UTC, zerolog.Nop())
	assert.ElementsMatch(t, []string{"exact-after", "exact-before"}, ids(got))
}

func TestFilterAvailableExcludesBookedIDsForEveryOrdering(t *testing.T) {
	base := []domain.Slot{
		slotAt("s1", tenAM.Add(24*time.Hour)),
		slotAt("s2", tenAM.Add(48*time.Hour)),
		slotAt("s3", tenAM.Add(72*time.Hour)),
	}
	// booked s2 sits far from its slot time so only the id can exclude it
	booked := []domain.Appointment{bookedAt("s2", tenAM.Add(-240*time.Hour))}

	orderings := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, order := range orderings {
		input := make([]domain.Slot, 0, len(order))
		for _, i := range order {
			input = append(input, base[i])
		}
		got := FilterAvailable(input, booked, testNow, time.UTC, zerolog.Nop())
		assert.ElementsMatch(t, []string{"s1", "s3"}, ids(got), "ordering %v", order)
		assert.NotContains(t, ids(got), "s2")
	}
}

func TestFilterAvailableMixedDateForms(t *testing.T) {
	booked := []domain.Appointment{{Slot: domain.Slot{ID: "a", DateTime: "10 марта 10:00"}, Status: domain.StatusBooked}}
	slots := []domain.Slot{
		{ID: "iso", DateTime: "2024-03-10T10:15:00"},
		{ID: "epoch", DateTime: "/Date(1710066600000+0000)/"}, // 10:30 UTC
		{ID: "text", DateTime: "2024-03-10 09:45"},
	}

	got := FilterAvailable(slots, booked, testNow, time.UTC, zerolog.Nop())
	assert.Equal(t, []string{"epoch"}, ids(got))
}

func TestFilterAvailableUnparseableFailsOpen(t *testing.T) {
	booked := []domain.Appointment{bookedAt("a", tenAM)}
	slots := []domain.Slot{{ID: "weird", DateTime: "когда-нибудь"}}

	got := FilterAvailable(slots, booked, testNow, time.UTC, zerolog.Nop())
	assert.Equal(t, []string{"weird"}, ids(got))
}

func TestFilterAvailableUnparseableBookingStillExcludesByID(t *testing.T) {
	booked := []domain.Appointment{{Slot: domain.Slot{ID: "s1", DateTime: "???"}, Status: domain.StatusBooked}}
	slots := []domain.Slot{slotAt("s1", tenAM), slotAt("s2", tenAM.Add(5*time.Minute))}

	got := FilterAvailable(slots, booked, testNow, time.UTC, zerolog.Nop())
	assert.Equal(t, []string{"s2"}, ids(got))
}

func TestFindConflictScenario(t *testing.T) {
	a := domain.Appointment{Slot: slotAt("A", tenAM), Status: domain.StatusBooked}
	a.Specialty = "Терапевт"
	booked := []domain.Appointment{a}

	existing, ok := FindConflict(slotAt("B", tenAM.Add(25*time.Minute)), booked, testNow, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "A", existing.ID)

	_, ok = FindConflict(slotAt("C", tenAM.Add(31*time.Minute)), booked, testNow, time.UTC)
	assert.False(t, ok)
}

func TestFindConflictIgnoresCancelled(t *testing.T) {
	booked := []domain.Appointment{{Slot: slotAt("A", tenAM), Status: domain.StatusCancelled}}
	_, ok := FindConflict(slotAt("B", tenAM), booked, testNow, time.UTC)
	assert.False(t, ok)
}

func TestSortSlots(t *testing.T) {
	slots := []domain.Slot{
		{ID: "undated", DateTime: "n/a"},
		slotAt("late", tenAM.Add(time.Hour)),
		{ID: "text", DateTime: "2024-03-10 09:00"},
		slotAt("early", tenAM),
	}
	SortSlots(slots, testNow, time.UTC)
	assert.Equal(t, []string{"text", "early", "late", "undated"}, ids(slots))
}
