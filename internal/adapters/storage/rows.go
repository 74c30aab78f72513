package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one scan_history row in the column order used by every SELECT
func scanRecord(row rowScanner) (*domain.ScanRecord, error) {
	record := &domain.ScanRecord{}
	var platform, hash, preview sql.NullString
	var resultJSON []byte

	err := row.Scan(
		&record.ID, &record.UserID, &record.Kind, &platform, &hash,
		&preview, &record.Anonymized, &resultJSON, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Platform = platform.String
	record.ContentHash = hash.String
	record.ContentPreview = preview.String
	if err := json.Unmarshal(resultJSON, &record.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan result: %w", err)
	}
	return record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
