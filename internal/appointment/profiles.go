package appointment

import (
	"context"
	"sync"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

// ProfileStore holds the patient profiles resolved in this process, keyed by
// registry patient id.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile

	gatesMu sync.Mutex
	gates   map[string]chan struct{}
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]domain.Profile),
		gates:    make(map[string]chan struct{}),
	}
}

// Lock serializes changes to one profile's appointments. The returned
// function releases it.
func (s *ProfileStore) Lock(ctx context.Context, id string) (func(), error) {
	s.gatesMu.Lock()
	gate, ok := s.gates[id]
	if !ok {
		gate = make(chan struct{}, 1)
		s.gates[id] = gate
	}
	s.gatesMu.Unlock()

	select {
	case gate <- struct{}{}:
		return func() { <-gate }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *ProfileStore) Put(profiles ...domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range profiles {
		s.profiles[p.ID] = cloneProfile(p)
	}
}

func (s *ProfileStore) Get(id string) (domain.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return domain.Profile{}, false
	}
	return cloneProfile(p), true
}

// Update applies fn to a copy of the profile and stores the result when fn
// succeeds.
func (s *ProfileStore) Update(id string, fn func(p *domain.Profile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return &domain.NotFoundError{Kind: "profile", ID: id}
	}
	p = cloneProfile(p)
	if err := fn(&p); err != nil {
		return err
	}
	s.profiles[id] = p
	return nil
}

func cloneProfile(p domain.Profile) domain.Profile {
	appts := make([]domain.Appointment, len(p.Appointments))
	copy(appts, p.Appointments)
	p.Appointments = appts
	return p
}
