package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

// DB exposes the connection pool so other stores can share it.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

const quickReplyColumns = `id, tenant_id, shortcut, content, is_active, usage_count,
	usage_today_count, last_used_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuickReply(row rowScanner) (*models.QuickReply, error) {
	r := &models.QuickReply{}
	var lastUsed sql.NullTime
	err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.Shortcut,
		&r.Content,
		&r.IsActive,
		&r.UsageCount,
		&r.UsageTodayCount,
		&lastUsed,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		r.LastUsedAt = &t
	}
	return r, nil
}

func (s *PostgresStorage) ListQuickReplies(ctx context.Context, tenantID string) ([]*models.QuickReply, error) {
	query := `
		SELECT ` + quickReplyColumns + `
		FROM quick_replies
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("error querying quick replies: %w", err)
	}
	defer rows.Close()

	replies := make([]*models.QuickReply, 0)
	for rows.Next() {
		r, err := scanQuickReply(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning quick reply: %w", err)
		}
		replies = append(replies, r)
	}

	return replies, rows.Err()
}

func (s *PostgresStorage) GetQuickReply(ctx context.Context, id string) (*models.QuickReply, error) {
	query := `SELECT ` + quickReplyColumns + ` FROM quick_replies WHERE id = $1`

	r, err := scanQuickReply(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying quick reply: %w", err)
	}
	return r, nil
}

func (s *PostgresStorage) SaveQuickReply(ctx context.Context, reply *models.QuickReply) error {
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}

	query := `
		INSERT INTO quick_replies (id, tenant_id, shortcut, content, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET shortcut = EXCLUDED.shortcut,
		    content = EXCLUDED.content,
		    is_active = EXCLUDED.is_active,
		    updated_at = NOW()
		RETURNING ` + quickReplyColumns

	saved, err := scanQuickReply(s.db.QueryRowContext(ctx, query,
		reply.ID,
		reply.TenantID,
		reply.Shortcut,
		reply.Content,
		reply.IsActive,
	))
	if err != nil {
		return fmt.Errorf("error saving quick reply: %w", err)
	}

	*reply = *saved
	return nil
}

func (s *PostgresStorage) SetActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE quick_replies SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id)
	if err != nil {
		return fmt.Errorf("error updating quick reply: %w", err)
	}
	return expectOneRow(result)
}

func (s *PostgresStorage) IncrementUsage(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE quick_replies
		SET usage_count = usage_count + 1,
		    usage_today_count = CASE
		        WHEN last_used_at IS NOT NULL
		         AND (last_used_at AT TIME ZONE 'UTC')::date = ($2::timestamptz AT TIME ZONE 'UTC')::date
		        THEN usage_today_count + 1
		        ELSE 1
		    END,
		    last_used_at = $2
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("error incrementing quick reply usage: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
