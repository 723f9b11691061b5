package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"postcheck/internal/prefix/models"
	"postcheck/internal/prefix/store"
)

// InMemory is a mutex-guarded prefix set. Add and Remove decide membership and
// mutate under the same write lock, so the map write is the uniqueness arbiter.
type InMemory struct {
	mu           sync.RWMutex
	prefixes     map[models.Prefix]struct{}
	bootstrapped bool
}

func NewInMemory() *InMemory {
	return &InMemory{prefixes: make(map[models.Prefix]struct{})}
}

// NewStatic returns a store pre-populated with prefixes and already marked as
// bootstrapped, for tests that want a fixed registry.
func NewStatic(prefixes ...models.Prefix) *InMemory {
	s := NewInMemory()
	for _, p := range prefixes {
		s.prefixes[p] = struct{}{}
	}
	s.bootstrapped = true
	return s
}

func (s *InMemory) List(_ context.Context) ([]models.Prefix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Prefix, 0, len(s.prefixes))
	for p := range s.prefixes {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func (s *InMemory) Exists(_ context.Context, prefix models.Prefix) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.prefixes[prefix]
	return ok, nil
}

func (s *InMemory) Add(_ context.Context, prefix models.Prefix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefixes[prefix]; ok {
		return fmt.Errorf("add prefix %s: %w", prefix, store.ErrAlreadyUsed)
	}
	s.prefixes[prefix] = struct{}{}
	return nil
}

func (s *InMemory) Remove(_ context.Context, prefix models.Prefix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefixes[prefix]; !ok {
		return fmt.Errorf("remove prefix %s: %w", prefix, store.ErrNotFound)
	}
	delete(s.prefixes, prefix)
	return nil
}

// Bootstrap installs seed once per store lifetime. It does nothing if the
// store was bootstrapped before or already holds prefixes.
func (s *InMemory) Bootstrap(_ context.Context, seed []models.Prefix) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bootstrapped {
		return false, nil
	}
	s.bootstrapped = true
	if len(s.prefixes) > 0 {
		return false, nil
	}
	for _, p := range seed {
		s.prefixes[p] = struct{}{}
	}
	return true, nil
}

func (s *InMemory) Ping(_ context.Context) error {
	return nil
}
