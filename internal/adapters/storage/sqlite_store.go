package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/ports"
)

// SQLiteStore implements ports.Storage on a local SQLite file.
// Used for single-node and development deployments.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.Storage = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan_history (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	scan_type       TEXT NOT NULL,
	platform        TEXT,
	content_hash    TEXT,
	content_preview TEXT,
	is_anonymized   BOOLEAN NOT NULL DEFAULT 1,
	result          TEXT NOT NULL,
	timestamp       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_history_user ON scan_history(user_id, timestamp);

CREATE TABLE IF NOT EXISTS feedback (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	scan_id    TEXT NOT NULL REFERENCES scan_history(id) ON DELETE CASCADE,
	is_correct BOOLEAN NOT NULL,
	comment    TEXT DEFAULT '',
	timestamp  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS privacy_settings (
	user_id                TEXT PRIMARY KEY,
	store_raw_content      BOOLEAN NOT NULL DEFAULT 0,
	share_anonymous_data   BOOLEAN NOT NULL DEFAULT 1,
	auto_delete_after_days INTEGER NOT NULL DEFAULT 365,
	updated_at             DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// NewSQLiteStore opens (creating if needed) the database at path and ensures the schema exists
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveScan appends a scan to the user's history
func (s *SQLiteStore) SaveScan(ctx context.Context, record *domain.ScanRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_history (id, user_id, scan_type, platform, content_hash, content_preview, is_anonymized, result, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(), record.UserID.String(), string(record.Kind), nullString(record.Platform),
		nullString(record.ContentHash), nullString(record.ContentPreview),
		record.Anonymized, string(resultJSON), record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

// GetScan retrieves a scan by ID
func (s *SQLiteStore) GetScan(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, scan_type, platform, content_hash, content_preview, is_anonymized, result, timestamp
		 FROM scan_history WHERE id = ?`, id.String())

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return record, nil
}

// ListScans retrieves a user's scans, newest first
func (s *SQLiteStore) ListScans(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, scan_type, platform, content_hash, content_preview, is_anonymized, result, timestamp
		 FROM scan_history WHERE user_id = ?
		 ORDER BY timestamp DESC, rowid DESC
		 LIMIT ?`, userID.String(), limit)
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
func (s *SQLiteStore) CreateFeedback(ctx context.Context, feedback *domain.Feedback) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, user_id, scan_id, is_correct, comment, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		feedback.ID.String(), feedback.UserID.String(), feedback.ScanID.String(),
		feedback.IsCorrect, feedback.Comment, feedback.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// GetPrivacySettings retrieves a user's privacy settings
func (s *SQLiteStore) GetPrivacySettings(ctx context.Context, userID uuid.UUID) (*domain.PrivacySettings, error) {
	settings := &domain.PrivacySettings{}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, store_raw_content, share_anonymous_data, auto_delete_after_days
		 FROM privacy_settings WHERE user_id = ?`, userID.String(),
	).Scan(&settings.UserID, &settings.StoreRawContent, &settings.ShareAnonymousData, &settings.AutoDeleteAfterDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get privacy settings: %w", err)
	}
	return settings, nil
}

// SavePrivacySettings inserts or replaces a user's privacy settings
func (s *SQLiteStore) SavePrivacySettings(ctx context.Context, settings *domain.PrivacySettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO privacy_settings (user_id, store_raw_content, share_anonymous_data, auto_delete_after_days, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET
		   store_raw_content = excluded.store_raw_content,
		   share_anonymous_data = excluded.share_anonymous_data,
		   auto_delete_after_days = excluded.auto_delete_after_days,
		   updated_at = CURRENT_TIMESTAMP`,
		settings.UserID.String(), settings.StoreRawContent,
		settings.ShareAnonymousData, settings.AutoDeleteAfterDays,
	)
	if err != nil {
		return fmt.Errorf("failed to save privacy settings: %w", err)
	}
	return nil
}
