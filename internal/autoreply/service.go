// Package autoreply decides whether an inbound message gets an automatic
// quick reply. It combines the matcher with the suppression ledger and never
// lets a failure escape to the message pipeline.
package autoreply

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/matcher"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/suppression"
)

// logPreviewLength caps how much of a message is written to logs.
const logPreviewLength = 50

// Ledger is the part of the suppression ledger the service relies on.
type Ledger interface {
	Acquire(ctx context.Context, mc *models.MatchContext, replyID string) (suppression.Verdict, error)
	Sweep(ctx context.Context, now int64) (int, error)
}

type Service struct {
	matcher *matcher.Matcher
	ledger  Ledger
	logger  *zap.Logger
}

func NewService(m *matcher.Matcher, ledger Ledger, logger *zap.Logger) *Service {
	return &Service{
		matcher: m,
		ledger:  ledger,
		logger:  logger,
	}
}

// FindBestMatch runs the matcher alone, without touching suppression state.
func (s *Service) FindBestMatch(text string, replies []*models.QuickReply) *models.MatchResult {
	return s.matcher.FindBestMatch(text, replies)
}

// ProcessAutoReply returns the reply to send for mc, or nil when nothing
// matched, the contact is in cooldown, the reply is a recent duplicate, or
// anything went wrong. A non-nil result has already been recorded as sent.
func (s *Service) ProcessAutoReply(ctx context.Context, mc *models.MatchContext, replies []*models.QuickReply) (result *models.MatchResult) {
	if mc == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Error processing auto-reply",
				zap.Error(fmt.Errorf("panic: %v", r)),
				zap.String("tenant_id", mc.TenantID),
				zap.String("contact_id", mc.ContactID),
				zap.String("conversation_id", mc.ConversationID))
			result = nil
		}
	}()

	match := s.matcher.FindBestMatch(mc.MessageText, replies)
	if match == nil {
		s.logger.Debug("No auto-reply match",
			zap.String("tenant_id", mc.TenantID),
			zap.String("message", preview(mc.MessageText)),
			zap.Int("candidates", len(replies)))
		return nil
	}

	verdict, err := s.ledger.Acquire(ctx, mc, match.Reply.ID)
	if err != nil {
		s.logger.Error("Error processing auto-reply",
			zap.Error(err),
			zap.String("tenant_id", mc.TenantID),
			zap.String("contact_id", mc.ContactID),
			zap.String("conversation_id", mc.ConversationID))
		return nil
	}
	if verdict.Skip() {
		return nil
	}

	s.logger.Info("Found matching auto-reply",
		zap.String("tenant_id", mc.TenantID),
		zap.String("contact_id", mc.ContactID),
		zap.String("message", preview(mc.MessageText)),
		zap.String("shortcut", match.Reply.Shortcut),
		zap.Float64("score", match.Score),
		zap.String("match_type", string(match.MatchType)))

	return match
}

// RunJanitor sweeps expired suppression entries every interval until ctx is
// done. It complements the sweep done during evaluation for quiet periods.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := s.ledger.Sweep(ctx, now.UnixMilli())
			if err != nil {
				s.logger.Warn("Failed to sweep suppression entries", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Debug("Swept suppression entries", zap.Int("removed", removed))
			}
		}
	}
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= logPreviewLength {
		return text
	}
	return string([]rune(text)[:logPreviewLength])
}
