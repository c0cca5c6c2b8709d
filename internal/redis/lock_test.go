package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSlotLocker(client, 5*time.Second), mr
}

func TestWithSlotLockReleasesAfterRun(t *testing.T) {
	locker, mr := newTestLocker(t)

	ran := false
	err := locker.WithSlotLock(context.Background(), "12345", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:registry-slot:12345"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:registry-slot:12345"))
}

func TestWithSlotLockContended(t *testing.T) {
	locker, _ := newTestLocker(t)

	err := locker.WithSlotLock(context.Background(), "s1", func(ctx context.Context) error {
		inner := locker.WithSlotLock(ctx, "s1", func(context.Context) error {
			t.Fatal("nested lock on the same slot must not run")
			return nil
		})
		assert.True(t, errors.Is(inner, ErrLockNotAcquired))

		return locker.WithSlotLock(ctx, "s2", func(context.Context) error { return nil })
	})
	require.NoError(t, err)
}

func TestWithSlotLockPropagatesError(t *testing.T) {
	locker, mr := newTestLocker(t)
	boom := errors.New("registry refused")

	err := locker.WithSlotLock(context.Background(), "s1", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:registry-slot:s1"))
}

func TestWithSlotLockDoesNotReleaseForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)

	err := locker.WithSlotLock(context.Background(), "s1", func(context.Context) error {
		// simulate expiry and takeover by another process
		require.NoError(t, mr.Set("lock:registry-slot:s1", "other-owner"))
		return nil
	})
	require.NoError(t, err)
	got, err := mr.Get("lock:registry-slot:s1")
	require.NoError(t, err)
	assert.Equal(t, "other-owner", got)
}

func TestWithSlotLockEmptyID(t *testing.T) {
	locker, _ := newTestLocker(t)
	err := locker.WithSlotLock(context.Background(), "", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	err := l.WithSlotLock(context.Background(), "s1", func(ctx context.Context) error {
		assert.ErrorIs(t, l.WithSlotLock(ctx, "s1", func(context.Context) error { return nil }), ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, l.WithSlotLock(context.Background(), "s1", func(context.Context) error { return nil }))
}
