package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/ports"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore implements ports.Storage for PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

var _ ports.Storage = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL storage instance
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded goose migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SaveScan appends a scan to the user's history
func (s *PostgresStore) SaveScan(ctx context.Context, record *domain.ScanRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	query := `
		INSERT INTO scan_history (
			id, user_id, scan_type, platform, content_hash,
			content_preview, is_anonymized, result, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.Kind, nullString(record.Platform),
		nullString(record.ContentHash), nullString(record.ContentPreview),
		record.Anonymized, resultJSON, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

// GetScan retrieves a scan by ID
func (s *PostgresStore) GetScan(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	query := `
		SELECT id, user_id, scan_type, platform, content_hash,
		       content_preview, is_anonymized, result, timestamp
		FROM scan_history
		WHERE id = $1
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return record, nil
}

// ListScans retrieves a user's scans, newest first
func (s *PostgresStore) ListScans(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ScanRecord, error) {
	query := `
		SELECT id, user_id, scan_type, platform, content_hash,
		       content_preview, is_anonymized, result, timestamp
		FROM scan_history
		WHERE user_id = $1
		ORDER BY timestamp DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ScanRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read scan: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// CreateFeedback inserts a feedback entry
func (s *PostgresStore) CreateFeedback(ctx context.Context, feedback *domain.Feedback) error {
	query := `
		INSERT INTO feedback (id, user_id, scan_id, is_correct, comment, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		feedback.ID, feedback.UserID, feedback.ScanID, feedback.IsCorrect,
		nullString(feedback.Comment), feedback.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// GetPrivacySettings retrieves a user's privacy settings
func (s *PostgresStore) GetPrivacySettings(ctx context.Context, userID uuid.UUID) (*domain.PrivacySettings, error) {
	query := `
		SELECT user_id, store_raw_content, share_anonymous_data, auto_delete_after_days
		FROM privacy_settings
		WHERE user_id = $1
	`
	settings := &domain.PrivacySettings{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID, &settings.StoreRawContent,
		&settings.ShareAnonymousData, &settings.AutoDeleteAfterDays,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get privacy settings: %w", err)
	}
	return settings, nil
}

// SavePrivacySettings inserts or replaces a user's privacy settings
func (s *PostgresStore) SavePrivacySettings(ctx context.Context, settings *domain.PrivacySettings) error {
	query := `
		INSERT INTO privacy_settings (user_id, store_raw_content, share_anonymous_data, auto_delete_after_days, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET store_raw_content = EXCLUDED.store_raw_content,
		    share_anonymous_data = EXCLUDED.share_anonymous_data,
		    auto_delete_after_days = EXCLUDED.auto_delete_after_days,
		    updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		settings.UserID, settings.StoreRawContent,
		settings.ShareAnonymousData, settings.AutoDeleteAfterDays,
	)
	if err != nil {
		return fmt.Errorf("failed to save privacy settings: %w", err)
	}
	return nil
}
