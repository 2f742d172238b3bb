package suppression

import (
	"context"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

// Key identifies the suppression entry of one contact of one tenant.
type Key struct {
	TenantID  string
	ContactID string
}

func (k Key) String() string {
	return k.TenantID + ":" + k.ContactID
}

// KeyOf returns the key an entry is stored under.
func KeyOf(e *models.SuppressionEntry) Key {
	return Key{TenantID: e.TenantID, ContactID: e.ContactID}
}

// UpdateFunc receives the current entry (nil when absent) and returns the
// entry to store, or nil to leave the store unchanged.
type UpdateFunc func(current *models.SuppressionEntry) (*models.SuppressionEntry, error)

// Store holds at most one entry per key.
type Store interface {
	// Get returns nil, nil when there is no entry for key.
	Get(ctx context.Context, key Key) (*models.SuppressionEntry, error)
	Set(ctx context.Context, entry *models.SuppressionEntry) error
	// Update runs fn with exclusive access to key. No other Update or Set on
	// the same key interleaves between the read and the write.
	Update(ctx context.Context, key Key, fn UpdateFunc) error
	// Sweep deletes entries whose LastSentAt is before cutoff and returns
	// how many were removed.
	Sweep(ctx context.Context, cutoff int64) (int, error)
	Close() error
}
