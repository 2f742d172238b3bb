package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

var ErrNotFound = errors.New("quick reply not found")

// Storage is the quick-reply repository the auto-reply hosts read
// candidates from and report usage to.
type Storage interface {
	// ListQuickReplies returns every reply of a tenant, oldest first.
	ListQuickReplies(ctx context.Context, tenantID string) ([]*models.QuickReply, error)
	GetQuickReply(ctx context.Context, id string) (*models.QuickReply, error)
	// SaveQuickReply inserts the reply, or updates shortcut, content and
	// active flag when the ID already exists. An empty ID gets a new UUID.
	SaveQuickReply(ctx context.Context, reply *models.QuickReply) error
	SetActive(ctx context.Context, id string, active bool) error
	// IncrementUsage bumps the usage counters. The daily counter restarts
	// when the previous use fell on another calendar day (UTC).
	IncrementUsage(ctx context.Context, id string, at time.Time) error
	Close() error
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
