package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/ports"
)

// MemoryStore implements ports.Storage in process memory.
// Data is lost on restart; used by tests and the memory store driver.
type MemoryStore struct {
	mu       sync.RWMutex
	scans    map[uuid.UUID]domain.ScanRecord
	order    []uuid.UUID // insertion order
	feedback []domain.Feedback
	privacy  map[uuid.UUID]domain.PrivacySettings
}

var _ ports.Storage = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scans:   make(map[uuid.UUID]domain.ScanRecord),
		privacy: make(map[uuid.UUID]domain.PrivacySettings),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) SaveScan(_ context.Context, record *domain.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans[record.ID] = *record
	s.order = append(s.order, record.ID)
	return nil
}

func (s *MemoryStore) GetScan(_ context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.scans[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *MemoryStore) ListScans(_ context.Context, userID uuid.UUID, limit int) ([]domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.ScanRecord, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		if record := s.scans[s.order[i]]; record.UserID == userID {
			records = append(records, record)
		}
	}
	// newest first; insertion order breaks timestamp ties
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) CreateFeedback(_ context.Context, feedback *domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback = append(s.feedback, *feedback)
	return nil
}

// Feedback returns all feedback recorded for a scan
func (s *MemoryStore) Feedback(scanID uuid.UUID) []domain.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Feedback, 0)
	for _, f := range s.feedback {
		if f.ScanID == scanID {
			out = append(out, f)
		}
	}
	return out
}

func (s *MemoryStore) GetPrivacySettings(_ context.Context, userID uuid.UUID) (*domain.PrivacySettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.privacy[userID]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func (s *MemoryStore) SavePrivacySettings(_ context.Context, settings *domain.PrivacySettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.privacy[settings.UserID] = *settings
	return nil
}
