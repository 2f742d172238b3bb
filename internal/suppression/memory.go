package suppression

import (
	"context"
	"sync"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]models.SuppressionEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[Key]models.SuppressionEntry),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (*models.SuppressionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists {
		return &e, nil
	}
	return nil, nil
}

func (s *MemoryStore) Set(ctx context.Context, entry *models.SuppressionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[KeyOf(entry)] = *entry
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, key Key, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *models.SuppressionEntry
	if e, exists := s.entries[key]; exists {
		current = &e
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next != nil {
		s.entries[key] = *next
	}
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context, cutoff int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if e.LastSentAt < cutoff {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked contacts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
