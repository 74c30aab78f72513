package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safeguard/safety-assistant/internal/adapters/breach"
	"github.com/safeguard/safety-assistant/internal/adapters/storage"
	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/domain/risk"
)

// stubClassifier answers every call with a fixed verdict
type stubClassifier struct {
	kind   domain.ScanKind
	labels []string
	result domain.ClassificationResult
	trains int
	err    error
}

func (c *stubClassifier) Kind() domain.ScanKind { return c.kind }
func (c *stubClassifier) Labels() []string { return c.labels }
func (c *stubClassifier) Load() error { return nil }
func (c *stubClassifier) Save() error { return nil }
func (c *stubClassifier) Trained() bool { return true }
func (c *stubClassifier) Capability() domain.Capability { return domain.Opaque }
func (c *stubClassifier) Predict(string) domain.ClassificationResult { return c.result }

func (c *stubClassifier) Train(samples, labels []string) error {
	c.trains++
	return c.err
}

func (c *stubClassifier) Explain(string, domain.ClassificationResult) domain.Explanation {
	return domain.Explanation{Kind: c.kind, Reasons: []string{"stub reason"}}
}

func (c *stubClassifier) Analyze(content string) (domain.ClassificationResult, domain.Explanation) {
	return c.result, c.Explain(content, c.result)
}

type recordingNotifier struct {
	alerts []domain.RiskAlert
	err    error
}

func (n *recordingNotifier) NotifyHighRisk(_ context.Context, alert domain.RiskAlert) error {
	n.alerts = append(n.alerts, alert)
	return n.err
}

type stubEnricher struct{ lookups []string }

func (e *stubEnricher) Lookup(ip net.IP) (*domain.NetworkInfo, error) {
	e.lookups = append(e.lookups, ip.String())
	return &domain.NetworkInfo{IP: ip.String(), CountryCode: "NL", ASN: 64500}, nil
}

type fixture struct {
	service  *ScanService
	store    *storage.MemoryStore
	notifier *recordingNotifier
	enricher *stubEnricher
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	aggregator, err := risk.NewAggregator(risk.DefaultWeights())
	require.NoError(t, err)

	f := &fixture{
		store:    storage.NewMemoryStore(),
		notifier: &recordingNotifier{},
		enricher: &stubEnricher{},
	}
	message := &stubClassifier{
		kind:   domain.KindMessage,
		labels: domain.MessageLabels,
		result: domain.ClassificationResult{
			Label:         domain.LabelScam,
			Confidence:    0.8,
			Probabilities: map[string]float64{domain.LabelSafe: 0.1, domain.LabelSuspicious: 0.1, domain.LabelScam: 0.8},
		},
	}
	url := &stubClassifier{
		kind:   domain.KindURL,
		labels: domain.URLLabels,
		result: domain.ClassificationResult{
			Label:         domain.LabelSuspicious,
			Confidence:    0.6,
			Probabilities: map[string]float64{domain.LabelSafe: 0.2, domain.LabelSuspicious: 0.6, domain.LabelMalicious: 0.2},
		},
	}

	f.service = NewScanService(f.store, message, url, breach.NewMockDirectory(), aggregator, zap.NewNop(),
		WithNotifier(f.notifier, DefaultNotifyThreshold),
		WithEnricher(f.enricher),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestScanService_Analyze(t *testing.T) {
	tests := []struct {
		name           string
		request        ScanRequest
		wantPrediction string
		wantConfidence float64
		wantRisk       float64
		wantAlert      bool
		check          func(t *testing.T, outcome *ScanOutcome, record domain.ScanRecord)
	}{
		{
			name:           "message scam",
			request:        ScanRequest{Kind: domain.KindMessage, Content: "URGENT: claim your prize", Platform: "android"},
			wantPrediction: domain.LabelScam,
			wantConfidence: 0.8,
			wantRisk:       80,
			wantAlert:      true,
			check: func(t *testing.T, outcome *ScanOutcome, record domain.ScanRecord) {
				assert.IsType(t, domain.Explanation{}, outcome.Details)
				assert.Len(t, outcome.Probabilities, 3)
				assert.Equal(t, sha256Hex("URGENT: claim your prize"), record.ContentHash)
				assert.Empty(t, record.ContentPreview, "raw message text is never stored")
				assert.True(t, record.Anonymized)
				assert.Equal(t, "android", record.Platform)
			},
		},
		{
			name:           "url with ip host is enriched",
			request:        ScanRequest{Kind: domain.KindURL, Content: "http://192.168.1.1/secure-login"},
			wantPrediction: domain.LabelSuspicious,
			wantConfidence: 0.6,
			wantRisk:       30,
			check: func(t *testing.T, outcome *ScanOutcome, record domain.ScanRecord) {
				explanation, ok := outcome.Details.(domain.Explanation)
				require.True(t, ok)
				require.NotNil(t, explanation.Network)
				assert.Equal(t, "NL", explanation.Network.CountryCode)
				assert.Equal(t, sha256Hex("http://192.168.1.1/secure-login"), record.ContentHash)
			},
		},
		{
			name:           "email in two breaches",
			request:        ScanRequest{Kind: domain.KindEmail, Content: "compromised@example.com"},
			wantPrediction: domain.PredictionBreachDetected,
			wantConfidence: 0.2,
			wantRisk:       20,
			check: func(t *testing.T, outcome *ScanOutcome, record domain.ScanRecord) {
				details, ok := outcome.Details.(*domain.BreachResult)
				require.True(t, ok)
				assert.Equal(t, 2, details.BreachCount)
				assert.Equal(t, "co***@example.com", record.ContentPreview)
				assert.Equal(t, sha256Hex("compromised@example.com"), record.ContentHash)
				assert.True(t, record.Anonymized)
				require.NotNil(t, record.Result.Breach)
			},
		},
		{
			name:           "clean email",
			request:        ScanRequest{Kind: domain.KindEmail, Content: "nobody@example.org"},
			wantPrediction: domain.LabelSafe,
			wantConfidence: 0,
			wantRisk:       0,
		},
		{
			name:           "compromised password",
			request:        ScanRequest{Kind: domain.KindPassword, Content: "password"},
			wantPrediction: domain.PredictionCompromised,
			wantConfidence: 0.9,
			wantRisk:       100,
			wantAlert:      true,
			check: func(t *testing.T, outcome *ScanOutcome, record domain.ScanRecord) {
				assert.Empty(t, record.ContentHash)
				assert.Empty(t, record.ContentPreview)
				require.NotNil(t, record.Result.Password)
				assert.Equal(t, "5BAA6", record.Result.Password.HashPrefix)
			},
		},
		{
			name:           "safe password",
			request:        ScanRequest{Kind: domain.KindPassword, Content: "correct horse battery staple 42!"},
			wantPrediction: "safe",
			wantConfidence: 0.1,
			wantRisk:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			user := uuid.New()

			outcome, err := f.service.Analyze(context.Background(), user, tt.request)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPrediction, outcome.Prediction)
			assert.InDelta(t, tt.wantConfidence, outcome.Confidence, 1e-9)
			assert.InDelta(t, tt.wantRisk, outcome.RiskScore, 1e-9)
			require.NotNil(t, outcome.ScanID)

			history, err := f.store.ListScans(context.Background(), user, 0)
			require.NoError(t, err)
			require.Len(t, history, 1)
			record := history[0]
			assert.Equal(t, *outcome.ScanID, record.ID)
			assert.Equal(t, tt.request.Kind, record.Kind)
			assert.Equal(t, fixedNow, record.CreatedAt)
			assert.InDelta(t, tt.wantRisk, record.Result.RiskScore, 1e-9)

			if tt.wantAlert {
				require.Len(t, f.notifier.alerts, 1)
				alert := f.notifier.alerts[0]
				assert.Equal(t, outcome.ScanID, alert.ScanID)
				assert.Equal(t, user, *alert.UserID)
				assert.NotEmpty(t, alert.Reasons)
			} else {
				assert.Empty(t, f.notifier.alerts)
			}

			if tt.check != nil {
				tt.check(t, outcome, record)
			}
		})
	}
}

func TestScanService_AnalyzeEmailWithRawContentAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.service.UpdatePrivacySettings(ctx, user, domain.PrivacySettings{StoreRawContent: true, AutoDeleteAfterDays: 30})
	require.NoError(t, err)

	_, err = f.service.Analyze(ctx, user, ScanRequest{Kind: domain.KindEmail, Content: "test@example.com"})
	require.NoError(t, err)

	history, err := f.service.History(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "test@example.com", history[0].ContentPreview)
	assert.Empty(t, history[0].ContentHash)
	assert.False(t, history[0].Anonymized)
}

func TestScanService_AnalyzeRejectsUnsupportedKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Analyze(context.Background(), uuid.New(), ScanRequest{Kind: "sms", Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}

func TestScanService_AnalyzeAnonymous(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.service.Analyze(context.Background(), uuid.Nil, ScanRequest{Kind: domain.KindMessage, Content: "hello"})
	require.NoError(t, err)
	assert.Nil(t, outcome.ScanID)

	require.Len(t, f.notifier.alerts, 1)
	assert.Nil(t, f.notifier.alerts[0].UserID)
	assert.Nil(t, f.notifier.alerts[0].ScanID)
}

func TestScanService_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("slack down")

	outcome, err := f.service.Analyze(context.Background(), uuid.New(), ScanRequest{Kind: domain.KindPassword, Content: "123456"})
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionCompromised, outcome.Prediction)
	assert.Len(t, f.notifier.alerts, 1)
}

// settingsDownStore fails every privacy settings lookup
type settingsDownStore struct {
	*storage.MemoryStore
}

func (settingsDownStore) GetPrivacySettings(context.Context, uuid.UUID) (*domain.PrivacySettings, error) {
	return nil, errors.New("db down")
}

func TestScanService_SettingsLookupFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	aggregator, err := risk.NewAggregator(risk.DefaultWeights())
	require.NoError(t, err)

	store := settingsDownStore{storage.NewMemoryStore()}
	message := &stubClassifier{kind: domain.KindMessage, labels: domain.MessageLabels, result: domain.ClassificationResult{
		Label:         domain.LabelSafe,
		Confidence:    0.9,
		Probabilities: map[string]float64{domain.LabelSafe: 0.9, domain.LabelSuspicious: 0.05, domain.LabelScam: 0.05},
	}}
	url := &stubClassifier{kind: domain.KindURL, labels: domain.URLLabels}
	service := NewScanService(store, message, url, breach.NewMockDirectory(), aggregator, zap.NewNop())
	user := uuid.New()

	outcome, err := service.Analyze(ctx, user, ScanRequest{Kind: domain.KindMessage, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, domain.LabelSafe, outcome.Prediction)
	require.NotNil(t, outcome.ScanID)

	outcome, err = service.Analyze(ctx, user, ScanRequest{Kind: domain.KindEmail, Content: "compromised@example.com"})
	require.NoError(t, err)
	require.NotNil(t, outcome.ScanID)

	history, err := store.ListScans(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, record := range history {
		if record.Kind != domain.KindEmail {
			continue
		}
		assert.Equal(t, sha256Hex("compromised@example.com"), record.ContentHash)
		assert.Equal(t, "co***@example.com", record.ContentPreview, "defaults keep raw content out of history")
		assert.True(t, record.Anonymized)
	}
}

func TestScanService_URLWithoutIPHostIsNotEnriched(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.service.Analyze(context.Background(), uuid.New(), ScanRequest{Kind: domain.KindURL, Content: "https://example.com/login"})
	require.NoError(t, err)

	explanation := outcome.Details.(domain.Explanation)
	assert.Nil(t, explanation.Network)
	assert.Empty(t, f.enricher.lookups)
}

func TestScanService_SubmitFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	outcome, err := f.service.Analyze(ctx, owner, ScanRequest{Kind: domain.KindMessage, Content: "claim now"})
	require.NoError(t, err)
	scanID := *outcome.ScanID

	tests := []struct {
		name    string
		user    uuid.UUID
		scanID  uuid.UUID
		wantErr error
	}{
		{"owner", owner, scanID, nil},
		{"other user", uuid.New(), scanID, domain.ErrNotFound},
		{"unknown scan", owner, uuid.New(), domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feedback, err := f.service.SubmitFeedback(ctx, tt.user, tt.scanID, false, "it was my bank")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, scanID, feedback.ScanID)
			assert.Equal(t, fixedNow, feedback.CreatedAt)
		})
	}

	stored := f.store.Feedback(scanID)
	require.Len(t, stored, 1)
	assert.Equal(t, "it was my bank", stored[0].Comment)
	assert.False(t, stored[0].IsCorrect)
}

func TestScanService_HistoryDefaultLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		_, err := f.service.Analyze(ctx, user, ScanRequest{Kind: domain.KindEmail, Content: "nobody@example.org"})
		require.NoError(t, err)
	}

	history, err := f.service.History(ctx, user, 0)
	require.NoError(t, err)
	assert.Len(t, history, DefaultHistoryLimit)

	history, err = f.service.History(ctx, user, 3)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestScanService_PrivacySettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	settings, err := f.service.PrivacySettings(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPrivacySettings(user), settings)

	updated, err := f.service.UpdatePrivacySettings(ctx, user, domain.PrivacySettings{
		UserID:              uuid.New(), // ignored
		StoreRawContent:     true,
		ShareAnonymousData:  false,
		AutoDeleteAfterDays: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, user, updated.UserID)

	settings, err = f.service.PrivacySettings(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, updated, settings)

	_, err = f.service.UpdatePrivacySettings(ctx, user, domain.PrivacySettings{AutoDeleteAfterDays: -1})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestScanService_RiskScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	empty, err := f.service.RiskScore(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.Score)
	assert.Equal(t, domain.StatusGreen, empty.Status)
	assert.Equal(t, fixedNow, empty.LastUpdated)

	for _, pw := range []string{"password", "123456"} {
		_, err := f.service.Analyze(ctx, user, ScanRequest{Kind: domain.KindPassword, Content: pw})
		require.NoError(t, err)
	}

	score, err := f.service.RiskScore(ctx, user)
	require.NoError(t, err)
	assert.InDelta(t, 13.33, score.Score, 1e-9)

	factor, ok := score.Factor(domain.FactorPassword)
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, factor.Score, 1e-9)
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "al***@example.com"},
		{"a@example.com", "a***@example.com"},
		{"not-an-email", "********"},
		{"abc", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, maskEmail(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "héé...", truncate("héééé", 3))
}
