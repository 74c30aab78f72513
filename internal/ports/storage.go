package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// Storage defines the contract for persisting scan history and user preferences
type Storage interface {
	// Scan history operations (append-only)
	SaveScan(ctx context.Context, record *domain.ScanRecord) error
	// GetScan returns nil, nil when no scan has the given ID
	GetScan(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error)
	// ListScans returns a user's scans newest first. A limit <= 0 returns all of them.
	ListScans(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ScanRecord, error)

	// Feedback operations
	CreateFeedback(ctx context.Context, feedback *domain.Feedback) error

	// Privacy settings operations. GetPrivacySettings returns nil, nil when the user never saved any.
	GetPrivacySettings(ctx context.Context, userID uuid.UUID) (*domain.PrivacySettings, error)
	SavePrivacySettings(ctx context.Context, settings *domain.PrivacySettings) error

	// Lifecycle
	Close() error
}
