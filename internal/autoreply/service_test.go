package autoreply

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/matcher"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/suppression"
)

func newService(t *testing.T) *Service {
	return newServiceAt(t, 0)
}

// newServiceAt builds a service whose ledger sweeps against a wall clock
// frozen at nowMs.
func newServiceAt(t *testing.T, nowMs int64) *Service {
	t.Helper()
	logger := zaptest.NewLogger(t)
	ledger := suppression.NewLedger(suppression.NewMemoryStore(), suppression.DefaultPolicy(), logger)
	ledger.SetClock(func() time.Time { return time.UnixMilli(nowMs) })
	return NewService(matcher.NewDefault(), ledger, logger)
}

func quickReplies() []*models.QuickReply {
	return []*models.QuickReply{
		{ID: "1", Shortcut: "payment", Content: "We accept COD and bank transfer.", IsActive: true},
		{ID: "2", Shortcut: "pricing", Content: "10% off on first purchase.", IsActive: true},
		{ID: "3", Shortcut: "away", Content: "I'm away, back soon.", IsActive: true},
	}
}

func msg(text string, ts int64) *models.MatchContext {
	return &models.MatchContext{
		TenantID:       "tenant-1",
		ContactID:      "contact-1",
		ConversationID: "conv-1",
		MessageText:    text,
		Timestamp:      ts,
	}
}

func TestProcessAutoReply_CooldownThenDifferentReply(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	first := s.ProcessAutoReply(ctx, msg("payment", 0), quickReplies())
	if first == nil || first.Reply.ID != "1" || first.Score != 1.0 || first.MatchType != models.MatchExact {
		t.Fatalf("t=0: unexpected result %+v", first)
	}

	if got := s.ProcessAutoReply(ctx, msg("pricing", 3_000), quickReplies()); got != nil {
		t.Fatalf("t=3000: expected cooldown, got %+v", got)
	}

	got := s.ProcessAutoReply(ctx, msg("pricing", 6_000), quickReplies())
	if got == nil || got.Reply.ID != "2" {
		t.Fatalf("t=6000: expected pricing reply, got %+v", got)
	}
}

func TestProcessAutoReply_DuplicateWindow(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	if got := s.ProcessAutoReply(ctx, msg("payment", 0), quickReplies()); got == nil {
		t.Fatal("t=0: expected a reply")
	}
	if got := s.ProcessAutoReply(ctx, msg("bhai payment ho gaya?", 10_000), quickReplies()); got != nil {
		t.Fatalf("t=10000: expected duplicate suppression, got %+v", got)
	}
	if got := s.ProcessAutoReply(ctx, msg("payment", 59_000), quickReplies()); got != nil {
		t.Fatalf("t=59000: expected duplicate suppression, got %+v", got)
	}

	got := s.ProcessAutoReply(ctx, msg("payment", 61_000), quickReplies())
	if got == nil || got.Reply.ID != "1" {
		t.Fatalf("t=61000: expected reply again, got %+v", got)
	}
}

func TestProcessAutoReply_FutureDatedMessageKeepsOtherCooldowns(t *testing.T) {
	s := newServiceAt(t, 1_000_000)
	ctx := context.Background()

	if got := s.ProcessAutoReply(ctx, msg("payment", 1_000_000), quickReplies()); got == nil {
		t.Fatal("expected a first reply")
	}

	other := msg("pricing", 10_000_000)
	other.TenantID = "tenant-2"
	if got := s.ProcessAutoReply(ctx, other, quickReplies()); got == nil {
		t.Fatal("expected a reply for the other tenant")
	}

	if got := s.ProcessAutoReply(ctx, msg("pricing", 1_002_000), quickReplies()); got != nil {
		t.Fatalf("contact still in cooldown got a second reply: %+v", got)
	}
}

func TestProcessAutoReply_NoMatchDoesNotStartCooldown(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	if got := s.ProcessAutoReply(ctx, msg("random unrelated text", 0), quickReplies()); got != nil {
		t.Fatalf("expected no match, got %+v", got)
	}
	if got := s.ProcessAutoReply(ctx, msg("payment", 1_000), quickReplies()); got == nil {
		t.Fatal("expected a reply after an unmatched message")
	}
}

func TestProcessAutoReply_EmptyInputs(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	if got := s.ProcessAutoReply(ctx, nil, quickReplies()); got != nil {
		t.Fatal("expected nil for nil context")
	}
	if got := s.ProcessAutoReply(ctx, msg("   ", 0), quickReplies()); got != nil {
		t.Fatal("expected nil for blank message")
	}
	if got := s.ProcessAutoReply(ctx, msg("payment", 0), nil); got != nil {
		t.Fatal("expected nil without candidates")
	}
}

type failingLedger struct {
	err   error
	panic bool
}

func (f failingLedger) Acquire(context.Context, *models.MatchContext, string) (suppression.Verdict, error) {
	if f.panic {
		panic("store exploded")
	}
	return suppression.Allow, f.err
}

func (f failingLedger) Sweep(context.Context, int64) (int, error) {
	return 0, f.err
}

func TestProcessAutoReply_FailSafe(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name   string
		ledger Ledger
	}{
		{"ledger error", failingLedger{err: errors.New("connection refused")}},
		{"ledger panic", failingLedger{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(matcher.NewDefault(), tt.ledger, logger)
			if got := s.ProcessAutoReply(ctx, msg("payment", 0), quickReplies()); got != nil {
				t.Fatalf("expected nil on failure, got %+v", got)
			}
		})
	}
}

func TestProcessAutoReply_ConcurrentMessagesSameContact(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		sent atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.ProcessAutoReply(ctx, msg("payment", int64(100+i)), quickReplies()) != nil {
				sent.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if n := sent.Load(); n != 1 {
		t.Fatalf("sent = %d, want 1", n)
	}
}

type countingLedger struct {
	failingLedger
	sweeps atomic.Int32
}

func (c *countingLedger) Sweep(context.Context, int64) (int, error) {
	c.sweeps.Add(1)
	return 1, nil
}

func TestRunJanitor(t *testing.T) {
	ledger := &countingLedger{}
	s := NewService(matcher.NewDefault(), ledger, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ledger.sweeps.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("janitor did not sweep")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done
}

func TestPreview(t *testing.T) {
	long := "payment kab tak send kro ga bhai, bohat dair ho gayi hai ab tak"
	if got := preview(long); len([]rune(got)) != logPreviewLength {
		t.Errorf("preview length = %d", len([]rune(got)))
	}
	if got := preview("short"); got != "short" {
		t.Errorf("preview = %q", got)
	}
}
