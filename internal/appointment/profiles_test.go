package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

func TestProfileStoreReturnsCopies(t *testing.T) {
	store := NewProfileStore()
	original := domain.Profile{
		ID:           "mother",
		Appointments: []domain.Appointment{{Slot: domain.Slot{ID: "s1"}, ProfileID: "mother"}},
	}
	store.Put(original)

	original.Appointments[0].ID = "mutated"

	got, ok := store.Get("mother")
	require.True(t, ok)
	assert.Equal(t, "s1", got.Appointments[0].ID)

	got.Appointments[0].ID = "mutated again"
	again, _ := store.Get("mother")
	assert.Equal(t, "s1", again.Appointments[0].ID)
}

func TestProfileStoreUpdate(t *testing.T) {
	store := NewProfileStore()
	store.Put(domain.Profile{ID: "mother"})

	err := store.Update("mother", func(p *domain.Profile) error {
		p.Appointments = append(p.Appointments, domain.Appointment{Slot: domain.Slot{ID: "s1"}})
		return nil
	})
	require.NoError(t, err)

	got, _ := store.Get("mother")
	assert.Len(t, got.Appointments, 1)
}

func TestProfileStoreUpdateFailureKeepsProfile(t *testing.T) {
	store := NewProfileStore()
	store.Put(domain.Profile{ID: "mother"})

	boom := errors.New("boom")
	err := store.Update("mother", func(p *domain.Profile) error {
		p.Appointments = append(p.Appointments, domain.Appointment{Slot: domain.Slot{ID: "s1"}})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := store.Get("mother")
	assert.Empty(t, got.Appointments)
}

func TestProfileStoreUpdateUnknownProfile(t *testing.T) {
	err := NewProfileStore().Update("ghost", func(*domain.Profile) error { return nil })

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "profile", nf.Kind)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfileStoreLockSerializesProfile(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	release, err := store.Lock(ctx, "mother")
	require.NoError(t, err)

	other, err := store.Lock(ctx, "child")
	require.NoError(t, err, "other profiles are not blocked")
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = store.Lock(waitCtx, "mother")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	again, err := store.Lock(ctx, "mother")
	require.NoError(t, err)
	again()
}
