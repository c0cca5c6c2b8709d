package slots

import (
	"context"
	"sync"
	"time"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

// Cache holds the availability lists fetched per slug. Withdraw is global:
// a booked slot disappears from every cached slug.
type Cache interface {
	// Get reports ok=false on a miss. A cached empty list is a hit.
	Get(ctx context.Context, slug string) (slots []domain.Slot, ok bool, err error)
	Put(ctx context.Context, slug string, slots []domain.Slot, ttl time.Duration) error
	Invalidate(ctx context.Context, slug string) error
	Withdraw(ctx context.Context, slotID string) error
	// Restore re-adds slot to its slug's list, only when that list is cached.
	Restore(ctx context.Context, slot domain.Slot) error
}

type memoryEntry struct {
	slots     []domain.Slot
	expiresAt time.Time
}

// MemoryCache keeps availability in process memory.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, slug string) ([]domain.Slot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[slug]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, slug)
		return nil, false, nil
	}
	out := make([]domain.Slot, len(e.slots))
	copy(out, e.slots)
	return out, true, nil
}

func (c *MemoryCache) Put(_ context.Context, slug string, slots []domain.Slot, ttl time.Duration) error {
	stored := make([]domain.Slot, len(slots))
	copy(stored, slots)

	e := memoryEntry{slots: stored}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[slug] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, slug string) error {
	c.mu.Lock()
	delete(c.entries, slug)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Withdraw(_ context.Context, slotID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for slug, e := range c.entries {
		kept := e.slots[:0:0]
		for _, s := range e.slots {
			if s.ID != slotID {
				kept = append(kept, s)
			}
		}
		if len(kept) != len(e.slots) {
			e.slots = kept
			c.entries[slug] = e
		}
	}
	return nil
}

func (c *MemoryCache) Restore(_ context.Context, slot domain.Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[slot.Slug]
	if !ok {
		return nil
	}
	for _, s := range e.slots {
		if s.ID == slot.ID {
			return nil
		}
	}
	e.slots = append(e.slots, slot)
	c.entries[slot.Slug] = e
	return nil
}
