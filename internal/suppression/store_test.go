package suppression

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

func storeBackends(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "suppression.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			key := Key{TenantID: "t1", ContactID: "c1"}

			got, err := s.Get(ctx, key)
			if err != nil || got != nil {
				t.Fatalf("Get on empty store = %+v, %v", got, err)
			}

			if err := s.Set(ctx, &models.SuppressionEntry{TenantID: "t1", ContactID: "c1", LastSentAt: 100, QuickReplyID: "r1"}); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, &models.SuppressionEntry{TenantID: "t1", ContactID: "c1", LastSentAt: 200, QuickReplyID: "r2"}); err != nil {
				t.Fatalf("Set: %v", err)
			}

			got, err = s.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got == nil || got.LastSentAt != 200 || got.QuickReplyID != "r2" || got.TenantID != "t1" || got.ContactID != "c1" {
				t.Fatalf("Get = %+v", got)
			}
		})
	}
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			key := Key{TenantID: "t1", ContactID: "c1"}

			err := s.Update(ctx, key, func(current *models.SuppressionEntry) (*models.SuppressionEntry, error) {
				if current != nil {
					t.Errorf("expected no current entry, got %+v", current)
				}
				return &models.SuppressionEntry{TenantID: "t1", ContactID: "c1", LastSentAt: 10, QuickReplyID: "r1"}, nil
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}

			// Returning nil leaves the entry untouched.
			err = s.Update(ctx, key, func(current *models.SuppressionEntry) (*models.SuppressionEntry, error) {
				if current == nil || current.LastSentAt != 10 {
					t.Errorf("unexpected current entry %+v", current)
				}
				return nil, nil
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}

			boom := errors.New("boom")
			err = s.Update(ctx, key, func(*models.SuppressionEntry) (*models.SuppressionEntry, error) {
				return &models.SuppressionEntry{LastSentAt: 99}, boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("Update error = %v, want boom", err)
			}

			got, _ := s.Get(ctx, key)
			if got == nil || got.LastSentAt != 10 || got.QuickReplyID != "r1" {
				t.Fatalf("entry changed unexpectedly: %+v", got)
			}
		})
	}
}

func TestStore_Sweep(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			for i, c := range []string{"a", "b", "c"} {
				e := &models.SuppressionEntry{TenantID: "t1", ContactID: c, LastSentAt: int64(i * 1000), QuickReplyID: "r"}
				if err := s.Set(ctx, e); err != nil {
					t.Fatal(err)
				}
			}

			removed, err := s.Sweep(ctx, 1000)
			if err != nil {
				t.Fatalf("Sweep: %v", err)
			}
			if removed != 1 {
				t.Fatalf("removed = %d, want 1", removed)
			}

			if got, _ := s.Get(ctx, Key{TenantID: "t1", ContactID: "a"}); got != nil {
				t.Error("expected a to be swept")
			}
			if got, _ := s.Get(ctx, Key{TenantID: "t1", ContactID: "b"}); got == nil {
				t.Error("expected b to survive")
			}
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "suppression.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, &models.SuppressionEntry{TenantID: "t1", ContactID: "c1", LastSentAt: 42, QuickReplyID: "r1"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := s.Get(ctx, Key{TenantID: "t1", ContactID: "c1"})
	if err != nil || got == nil || got.LastSentAt != 42 {
		t.Fatalf("Get after reopen = %+v, %v", got, err)
	}
}

func TestKey_String(t *testing.T) {
	if got := (Key{TenantID: "t1", ContactID: "c1"}).String(); got != "t1:c1" {
		t.Errorf("String = %q", got)
	}
}
