package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/ports"
)

func newSQLiteStore(t *testing.T) ports.Storage {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "safety-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func stores(t *testing.T) map[string]func(t *testing.T) ports.Storage {
	return map[string]func(t *testing.T) ports.Storage{
		"memory": func(t *testing.T) ports.Storage { return NewMemoryStore() },
		"sqlite": newSQLiteStore,
	}
}

func scan(userID uuid.UUID, kind domain.ScanKind, prediction string, at time.Time) *domain.ScanRecord {
	return &domain.ScanRecord{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        kind,
		ContentHash: "deadbeef",
		Anonymized:  true,
		Result: domain.ScanResult{
			Prediction:    prediction,
			Confidence:    0.75,
			Probabilities: map[string]float64{prediction: 0.75, "safe": 0.25},
			RiskScore:     75,
		},
		CreatedAt: at,
	}
}

func TestStore_ScanHistory(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			user := uuid.New()
			other := uuid.New()
			base := time.Now().UTC().Truncate(time.Second)

			first := scan(user, domain.KindURL, domain.LabelMalicious, base)
			second := scan(user, domain.KindMessage, domain.LabelScam, base.Add(time.Minute))
			second.Platform = "android"
			third := scan(user, domain.KindEmail, domain.PredictionBreachDetected, base.Add(2*time.Minute))
			third.ContentHash = ""
			third.ContentPreview = "al***@example.com"
			third.Result.Breach = &domain.BreachResult{Email: "alice@example.com", BreachCount: 1, RiskLevel: "medium"}
			foreign := scan(other, domain.KindURL, domain.LabelSafe, base.Add(3*time.Minute))

			for _, r := range []*domain.ScanRecord{first, second, third, foreign} {
				require.NoError(t, store.SaveScan(ctx, r))
			}

			all, err := store.ListScans(ctx, user, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, third.ID, all[0].ID, "newest first")
			assert.Equal(t, second.ID, all[1].ID)
			assert.Equal(t, first.ID, all[2].ID)

			assert.Equal(t, "android", all[1].Platform)
			require.NotNil(t, all[0].Result.Breach)
			assert.Equal(t, 1, all[0].Result.Breach.BreachCount)
			assert.Equal(t, "al***@example.com", all[0].ContentPreview)
			assert.InDelta(t, 0.75, all[2].Result.Probabilities[domain.LabelMalicious], 1e-12)

			limited, err := store.ListScans(ctx, user, 2)
			require.NoError(t, err)
			assert.Len(t, limited, 2)

			got, err := store.GetScan(ctx, second.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, user, got.UserID)
			assert.Equal(t, domain.KindMessage, got.Kind)
			assert.Equal(t, "deadbeef", got.ContentHash)
			assert.True(t, got.CreatedAt.Equal(second.CreatedAt))

			missing, err := store.GetScan(ctx, uuid.New())
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestStore_FeedbackAndPrivacy(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)
			user := uuid.New()

			record := scan(user, domain.KindMessage, domain.LabelScam, time.Now().UTC())
			require.NoError(t, store.SaveScan(ctx, record))
			require.NoError(t, store.CreateFeedback(ctx, &domain.Feedback{
				ID:        uuid.New(),
				UserID:    user,
				ScanID:    record.ID,
				IsCorrect: false,
				Comment:   "this was my bank",
				CreatedAt: time.Now().UTC(),
			}))

			settings, err := store.GetPrivacySettings(ctx, user)
			require.NoError(t, err)
			assert.Nil(t, settings, "no settings saved yet")

			want := domain.PrivacySettings{UserID: user, StoreRawContent: true, ShareAnonymousData: false, AutoDeleteAfterDays: 30}
			require.NoError(t, store.SavePrivacySettings(ctx, &want))

			settings, err = store.GetPrivacySettings(ctx, user)
			require.NoError(t, err)
			require.NotNil(t, settings)
			assert.Equal(t, want, *settings)

			want.AutoDeleteAfterDays = 90
			require.NoError(t, store.SavePrivacySettings(ctx, &want))
			settings, err = store.GetPrivacySettings(ctx, user)
			require.NoError(t, err)
			assert.Equal(t, 90, settings.AutoDeleteAfterDays)
		})
	}
}

func TestMemoryStore_Feedback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	scanID := uuid.New()

	require.NoError(t, store.CreateFeedback(ctx, &domain.Feedback{ID: uuid.New(), ScanID: scanID, IsCorrect: true}))
	require.NoError(t, store.CreateFeedback(ctx, &domain.Feedback{ID: uuid.New(), ScanID: uuid.New()}))

	got := store.Feedback(scanID)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsCorrect)
}
