package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

type MemoryStorage struct {
	mu      sync.RWMutex
	replies map[string]*models.QuickReply
	seq     int64
	order   map[string]int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		replies: make(map[string]*models.QuickReply),
		order:   make(map[string]int64),
	}
}

func (s *MemoryStorage) ListQuickReplies(ctx context.Context, tenantID string) ([]*models.QuickReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.QuickReply, 0)
	for _, r := range s.replies {
		if r.TenantID == tenantID {
			c := *r
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return s.order[result[i].ID] < s.order[result[j].ID]
	})
	return result, nil
}

func (s *MemoryStorage) GetQuickReply(ctx context.Context, id string) (*models.QuickReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, exists := s.replies[id]; exists {
		c := *r
		return &c, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) SaveQuickReply(ctx context.Context, reply *models.QuickReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}

	if existing, exists := s.replies[reply.ID]; exists {
		existing.Shortcut = reply.Shortcut
		existing.Content = reply.Content
		existing.IsActive = reply.IsActive
		existing.UpdatedAt = now
		*reply = *existing
		return nil
	}

	reply.CreatedAt = now
	reply.UpdatedAt = now
	c := *reply
	s.replies[reply.ID] = &c
	s.seq++
	s.order[reply.ID] = s.seq
	return nil
}

func (s *MemoryStorage) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.replies[id]
	if !exists {
		return ErrNotFound
	}
	r.IsActive = active
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStorage) IncrementUsage(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.replies[id]
	if !exists {
		return ErrNotFound
	}

	if r.LastUsedAt != nil && sameDay(*r.LastUsedAt, at) {
		r.UsageTodayCount++
	} else {
		r.UsageTodayCount = 1
	}
	r.UsageCount++
	r.LastUsedAt = &at
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
