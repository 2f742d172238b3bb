package suppression

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

// PostgresStore shares suppression state between instances. Per-key
// exclusivity comes from a transaction-scoped advisory lock, which also
// covers keys that have no row yet.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore uses an already opened database. The handle stays owned
// by the caller; Close does not close it.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("error initializing suppression schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (*models.SuppressionEntry, error) {
	return getEntry(ctx, s.db, key)
}

func (s *PostgresStore) Set(ctx context.Context, entry *models.SuppressionEntry) error {
	return s.Update(ctx, KeyOf(entry), func(*models.SuppressionEntry) (*models.SuppressionEntry, error) {
		return entry, nil
	})
}

func (s *PostgresStore) Update(ctx context.Context, key Key, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
		return fmt.Errorf("error locking suppression key: %w", err)
	}

	current, err := getEntry(ctx, tx, key)
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
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, contact_id)
		DO UPDATE SET last_sent_at = EXCLUDED.last_sent_at, quick_reply_id = EXCLUDED.quick_reply_id`,
		key.TenantID, key.ContactID, next.LastSentAt, next.QuickReplyID,
	)
	if err != nil {
		return fmt.Errorf("error saving suppression entry: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) Sweep(ctx context.Context, cutoff int64) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM auto_reply_suppressions WHERE last_sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error sweeping suppression entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (s *PostgresStore) Close() error {
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getEntry(ctx context.Context, q queryer, key Key) (*models.SuppressionEntry, error) {
	e := &models.SuppressionEntry{TenantID: key.TenantID, ContactID: key.ContactID}
	err := q.QueryRowContext(ctx, `
		SELECT last_sent_at, quick_reply_id
		FROM auto_reply_suppressions
		WHERE tenant_id = $1 AND contact_id = $2`,
		key.TenantID, key.ContactID,
	).Scan(&e.LastSentAt, &e.QuickReplyID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying suppression entry: %w", err)
	}
	return e, nil
}
