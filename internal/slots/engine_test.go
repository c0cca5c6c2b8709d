package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/registry-scheduling/internal/catalog"
	"github.com/hackgods/registry-scheduling/internal/domain"
)

type stubResolver struct {
	target catalog.Target
	err    error
}

func (r stubResolver) Resolve(ctx context.Context, slug string) (catalog.Target, error) {
	return r.target, r.err
}

type stubLister struct {
	slots    []domain.Slot
	err      error
	calls    int
	from, to time.Time
}

func (l *stubLister) ListSlots(ctx context.Context, facilityID, doctorID string, from, to time.Time) ([]domain.Slot, error) {
	l.calls++
	l.from, l.to = from, to
	if l.err != nil {
		return nil, l.err
	}
	out := make([]domain.Slot, len(l.slots))
	copy(out, l.slots)
	return out, nil
}

func therapistTarget() catalog.Target {
	return catalog.Target{
		Entry:  domain.CatalogEntry{Name: "Терапевт", Slug: "therapist", FacilityID: "lpu-1", RegistrySpecialtyID: "10"},
		Doctor: domain.Doctor{ID: "d-1", Name: "Петров П.П."},
	}
}

func newTestEngine(lister SlotLister, cache Cache) *Engine {
	e := NewEngine(stubResolver{target: therapistTarget()}, lister, cache, EngineConfig{
		Window:   14 * 24 * time.Hour,
		TTL:      10 * time.Minute,
		Location: time.UTC,
	}, zerolog.Nop(), nil)
	e.now = func() time.Time { return testNow }
	return e
}

func TestEngineLoadsStampsAndCaches(t *testing.T) {
	lister := &stubLister{slots: []domain.Slot{
		slotAt("late", tenAM.Add(2*time.Hour)),
		slotAt("early", tenAM),
	}}
	cache := NewMemoryCache()
	e := newTestEngine(lister, cache)

	got, err := e.GetAvailableSlots(context.Background(), "therapist")
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, ids(got))
	assert.Equal(t, "therapist", got[0].Slug)
	assert.Equal(t, "Терапевт", got[0].Specialty)
	assert.Equal(t, "Петров П.П.", got[0].DoctorName)
	assert.Equal(t, testNow, lister.from)
	assert.Equal(t, testNow.Add(14*24*time.Hour), lister.to)

	_, err = e.GetAvailableSlots(context.Background(), "therapist")
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls)
}

func TestEngineRegistryFailureNotCached(t *testing.T) {
	lister := &stubLister{err: &domain.TransportError{Op: "GetAvaibleAppointments", Err: errors.New("timeout")}}
	cache := NewMemoryCache()
	e := newTestEngine(lister, cache)

	_, err := e.GetAvailableSlots(context.Background(), "therapist")
	var tr *domain.TransportError
	require.True(t, errors.As(err, &tr))

	_, ok, _ := cache.Get(context.Background(), "therapist")
	assert.False(t, ok)
}

func TestEngineResolveFailure(t *testing.T) {
	lister := &stubLister{}
	e := NewEngine(stubResolver{err: &domain.NotFoundError{Kind: "slug", ID: "x"}}, lister, NewMemoryCache(), EngineConfig{}, zerolog.Nop(), nil)

	_, err := e.GetAvailableSlots(context.Background(), "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Zero(t, lister.calls)
}

func TestEngineProfileSlots(t *testing.T) {
	lister := &stubLister{slots: []domain.Slot{
		slotAt("B", tenAM.Add(25*time.Minute)),
		slotAt("C", tenAM.Add(31*time.Minute)),
	}}
	e := newTestEngine(lister, NewMemoryCache())

	got, err := e.ProfileSlots(context.Background(), "therapist", []domain.Appointment{bookedAt("A", tenAM)})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, ids(got))
}

func TestEngineIsOffered(t *testing.T) {
	cache := NewMemoryCache()
	e := newTestEngine(&stubLister{}, cache)
	ctx := context.Background()

	ok, err := e.IsOffered(ctx, "therapist", "s1")
	require.NoError(t, err)
	assert.True(t, ok, "cold cache passes")

	require.NoError(t, cache.Put(ctx, "therapist", []domain.Slot{slotAt("s1", tenAM)}, time.Minute))
	ok, _ = e.IsOffered(ctx, "therapist", "s1")
	assert.True(t, ok)

	require.NoError(t, cache.Withdraw(ctx, "s1"))
	ok, _ = e.IsOffered(ctx, "therapist", "s1")
	assert.False(t, ok)
}

func TestEngineRefreshReplacesCache(t *testing.T) {
	lister := &stubLister{slots: []domain.Slot{slotAt("s1", tenAM)}}
	cache := NewMemoryCache()
	e := newTestEngine(lister, cache)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "therapist", []domain.Slot{slotAt("stale", tenAM)}, time.Minute))
	n, err := e.Refresh(ctx, "therapist")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _, _ := cache.Get(ctx, "therapist")
	assert.Equal(t, []string{"s1"}, ids(got))
}

func TestEngineSlotLooksUpOfferedSlot(t *testing.T) {
	lister := &stubLister{slots: []domain.Slot{slotAt("s1", tenAM), slotAt("s2", tenAM.Add(time.Hour))}}
	e := newTestEngine(lister, NewMemoryCache())
	ctx := context.Background()

	got, ok, err := e.Slot(ctx, "therapist", "s2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "therapist", got.Slug)
	assert.True(t, got.StartsAt.Equal(tenAM.Add(time.Hour)))
	assert.Equal(t, 1, lister.calls, "cold cache is loaded")

	_, ok, err = e.Slot(ctx, "therapist", "s9")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, lister.calls)
}
