package suppression

import (
	"time"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

const (
	// DefaultRateLimitInterval is the minimum gap between any two
	// auto-replies to the same contact.
	DefaultRateLimitInterval = 5 * time.Second
	// DefaultDuplicateWindow is how long the same reply is not repeated.
	DefaultDuplicateWindow = 60 * time.Second
)

// Verdict is the outcome of checking an entry against the policy.
type Verdict int

const (
	Allow Verdict = iota
	SkipRateLimited
	SkipDuplicate
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case SkipRateLimited:
		return "rate_limited"
	case SkipDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Skip reports whether the verdict suppresses the reply.
func (v Verdict) Skip() bool {
	return v != Allow
}

type Policy struct {
	RateLimitInterval time.Duration
	DuplicateWindow   time.Duration
	// SweepInterval throttles the opportunistic sweep; zero sweeps on every
	// evaluation.
	SweepInterval time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		RateLimitInterval: DefaultRateLimitInterval,
		DuplicateWindow:   DefaultDuplicateWindow,
	}
}

// Evaluate applies the rules in order: no entry allows, a reply inside the
// rate limit interval skips, the same reply inside the duplicate window
// skips, anything else allows. now is in Unix milliseconds.
func (p Policy) Evaluate(entry *models.SuppressionEntry, now int64, replyID string) Verdict {
	if entry == nil {
		return Allow
	}

	elapsed := now - entry.LastSentAt
	if elapsed < p.RateLimitInterval.Milliseconds() {
		return SkipRateLimited
	}
	if entry.QuickReplyID == replyID && elapsed < p.DuplicateWindow.Milliseconds() {
		return SkipDuplicate
	}
	return Allow
}
