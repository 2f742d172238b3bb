package suppression

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

// SQLiteStore keeps suppression state in a local database file so a single
// node does not forget recent replies across restarts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes every transaction, which is what makes
	// Update atomic per key.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS auto_reply_suppressions (
			tenant_id TEXT NOT NULL,
			contact_id TEXT NOT NULL,
			last_sent_at INTEGER NOT NULL,
			quick_reply_id TEXT NOT NULL,
			PRIMARY KEY (tenant_id, contact_id)
		);
		CREATE INDEX IF NOT EXISTS idx_auto_reply_suppressions_last_sent_at
			ON auto_reply_suppressions (last_sent_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) (*models.SuppressionEntry, error) {
	return s.get(ctx, s.db, key)
}

func (s *SQLiteStore) Set(ctx context.Context, entry *models.SuppressionEntry) error {
	return s.Update(ctx, KeyOf(entry), func(*models.SuppressionEntry) (*models.SuppressionEntry, error) {
		return entry, nil
	})
}

func (s *SQLiteStore) Update(ctx context.Context, key Key, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.get(ctx, tx, key)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO auto_reply_suppressions (tenant_id, contact_id, last_sent_at, quick_reply_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id, contact_id)
		DO UPDATE SET last_sent_at = excluded.last_sent_at, quick_reply_id = excluded.quick_reply_id`,
		key.TenantID, key.ContactID, next.LastSentAt, next.QuickReplyID,
	)
	if err != nil {
		return fmt.Errorf("failed to save suppression entry: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Sweep(ctx context.Context, cutoff int64) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM auto_reply_suppressions WHERE last_sent_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep suppression entries: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(ctx context.Context, q queryer, key Key) (*models.SuppressionEntry, error) {
	e := &models.SuppressionEntry{TenantID: key.TenantID, ContactID: key.ContactID}
	err := q.QueryRowContext(ctx, `
		SELECT last_sent_at, quick_reply_id
		FROM auto_reply_suppressions
		WHERE tenant_id = ? AND contact_id = ?`,
		key.TenantID, key.ContactID,
	).Scan(&e.LastSentAt, &e.QuickReplyID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query suppression entry: %w", err)
	}
	return e, nil
}
