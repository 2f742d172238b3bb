// Package suppression keeps auto-replies from spamming a contact: it records
// the last reply sent per (tenant, contact) and rejects replies that come
// too soon after it or repeat it within the duplicate window.
package suppression

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

type Ledger struct {
	store     Store
	policy    Policy
	logger    *zap.Logger
	now       func() time.Time
	lastSweep atomic.Int64
}

func NewLedger(store Store, policy Policy, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the clock used for opportunistic sweeps. Message
// timestamps never move the sweep cutoff, so a future-dated message cannot
// expire other contacts' entries. Call it before the ledger is shared.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

func keyFor(mc *models.MatchContext) Key {
	return Key{TenantID: mc.TenantID, ContactID: mc.ContactID}
}

// ShouldSkip reports whether a reply with replyID must not be sent for mc.
// It does not record anything; pair it with MarkSent, or use Acquire when
// evaluations for the same contact may run concurrently.
func (l *Ledger) ShouldSkip(ctx context.Context, mc *models.MatchContext, replyID string) (bool, error) {
	l.maybeSweep(ctx)

	entry, err := l.store.Get(ctx, keyFor(mc))
	if err != nil {
		return false, fmt.Errorf("failed to read suppression entry: %w", err)
	}

	verdict := l.policy.Evaluate(entry, mc.Timestamp, replyID)
	l.logVerdict(mc, replyID, entry, verdict)
	return verdict.Skip(), nil
}

// MarkSent records replyID as the last reply sent for mc, replacing any
// previous entry.
func (l *Ledger) MarkSent(ctx context.Context, mc *models.MatchContext, replyID string) error {
	entry := &models.SuppressionEntry{
		TenantID:     mc.TenantID,
		ContactID:    mc.ContactID,
		LastSentAt:   mc.Timestamp,
		QuickReplyID: replyID,
	}
	if err := l.store.Set(ctx, entry); err != nil {
		return fmt.Errorf("failed to record auto-reply: %w", err)
	}
	return nil
}

// Acquire checks the policy and, when it allows the reply, records it in the
// same store update. Two concurrent calls for one contact can never both be
// allowed inside the rate limit interval.
func (l *Ledger) Acquire(ctx context.Context, mc *models.MatchContext, replyID string) (Verdict, error) {
	l.maybeSweep(ctx)

	var (
		verdict Verdict
		prior   *models.SuppressionEntry
	)
	err := l.store.Update(ctx, keyFor(mc), func(current *models.SuppressionEntry) (*models.SuppressionEntry, error) {
		prior = current
		verdict = l.policy.Evaluate(current, mc.Timestamp, replyID)
		if verdict.Skip() {
			return nil, nil
		}
		return &models.SuppressionEntry{
			TenantID:     mc.TenantID,
			ContactID:    mc.ContactID,
			LastSentAt:   mc.Timestamp,
			QuickReplyID: replyID,
		}, nil
	})
	if err != nil {
		return Allow, fmt.Errorf("failed to update suppression entry: %w", err)
	}

	l.logVerdict(mc, replyID, prior, verdict)
	return verdict, nil
}

// Sweep removes entries older than the duplicate window relative to now
// (Unix milliseconds).
func (l *Ledger) Sweep(ctx context.Context, now int64) (int, error) {
	l.lastSweep.Store(now)
	return l.store.Sweep(ctx, now-l.policy.DuplicateWindow.Milliseconds())
}

func (l *Ledger) maybeSweep(ctx context.Context) {
	now := l.now().UnixMilli()
	if interval := l.policy.SweepInterval.Milliseconds(); interval > 0 {
		last := l.lastSweep.Load()
		if now-last < interval || !l.lastSweep.CompareAndSwap(last, now) {
			return
		}
	}

	removed, err := l.store.Sweep(ctx, now-l.policy.DuplicateWindow.Milliseconds())
	if err != nil {
		l.logger.Warn("Failed to sweep suppression entries", zap.Error(err))
		return
	}
	if removed > 0 {
		l.logger.Debug("Swept suppression entries", zap.Int("removed", removed))
	}
}

func (l *Ledger) logVerdict(mc *models.MatchContext, replyID string, prior *models.SuppressionEntry, v Verdict) {
	if !v.Skip() {
		return
	}
	fields := []zap.Field{
		zap.String("tenant_id", mc.TenantID),
		zap.String("contact_id", mc.ContactID),
		zap.String("quick_reply_id", replyID),
		zap.String("reason", v.String()),
	}
	if prior != nil {
		fields = append(fields, zap.Int64("time_since_ms", mc.Timestamp-prior.LastSentAt))
	}
	l.logger.Debug("Skipping auto-reply", fields...)
}
