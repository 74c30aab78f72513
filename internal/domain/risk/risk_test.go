package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeguard/safety-assistant/internal/domain"
)

var asOf = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(DefaultWeights())
	require.NoError(t, err)
	return agg
}

func records(kind domain.ScanKind, prediction string, n int) []domain.ScanRecord {
	out := make([]domain.ScanRecord, n)
	for i := range out {
		out[i] = domain.ScanRecord{Kind: kind, Result: domain.ScanResult{Prediction: prediction, Confidence: 0.9}}
	}
	return out
}

func TestConverter(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected float64
	}{
		{"scam message", MessageRisk(domain.ClassificationResult{Label: domain.LabelScam, Confidence: 0.8}), 80},
		{"suspicious message", MessageRisk(domain.ClassificationResult{Label: domain.LabelSuspicious, Confidence: 0.8}), 40},
		{"safe message", MessageRisk(domain.ClassificationResult{Label: domain.LabelSafe, Confidence: 0.8}), 8},
		{"malicious url", URLRisk(domain.ClassificationResult{Label: domain.LabelMalicious, Confidence: 0.6}), 60},
		{"suspicious url", URLRisk(domain.ClassificationResult{Label: domain.LabelSuspicious, Confidence: 0.6}), 30},
		{"safe url", URLRisk(domain.ClassificationResult{Label: domain.LabelSafe, Confidence: 0.6}), 6},
		{"no breaches", BreachRisk(0), 0},
		{"three breaches", BreachRisk(3), 30},
		{"breaches capped", BreachRisk(25), 100},
		{"compromised password", PasswordRisk(true), 100},
		{"safe password", PasswordRisk(false), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.score, 1e-9)
		})
	}
}

func TestContribution(t *testing.T) {
	tests := []struct {
		name     string
		record   domain.ScanRecord
		expected float64
	}{
		{
			name:     "password compromise is binary",
			record:   domain.ScanRecord{Kind: domain.KindPassword, Result: domain.ScanResult{Prediction: domain.PredictionCompromised, Confidence: 0.1}},
			expected: 100,
		},
		{
			name: "password result wins over prediction",
			record: domain.ScanRecord{Kind: domain.KindPassword, Result: domain.ScanResult{
				Prediction: "safe",
				Password:   &domain.PasswordResult{SafetyStatus: domain.PredictionCompromised},
			}},
			expected: 100,
		},
		{
			name: "email uses breach count",
			record: domain.ScanRecord{Kind: domain.KindEmail, Result: domain.ScanResult{
				Breach: &domain.BreachResult{BreachCount: 2},
			}},
			expected: 20,
		},
		{
			name:     "email without breach details",
			record:   domain.ScanRecord{Kind: domain.KindEmail},
			expected: 0,
		},
		{
			name:     "url",
			record:   domain.ScanRecord{Kind: domain.KindURL, Result: domain.ScanResult{Prediction: domain.LabelMalicious, Confidence: 0.5}},
			expected: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Contribution(tt.record), 1e-9)
		})
	}
}

func TestWeights(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-12)

	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{"equal split", Weights{0.25, 0.25, 0.25, 0.25}, false},
		{"sum above one", Weights{0.5, 0.25, 0.25, 0.2}, true},
		{"negative weight", Weights{1.2, -0.2, 0, 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := NewAggregator(tt.weights)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeights)
				assert.Nil(t, agg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.weights, agg.Weights())
		})
	}
}

func TestAggregator_Compute(t *testing.T) {
	agg := newAggregator(t)

	tests := []struct {
		name            string
		history         []domain.ScanRecord
		expectedScore   float64
		expectedStatus  domain.RiskStatus
		expectedFactors map[string]float64
		expectedAdvice  []string
	}{
		{
			name:           "empty history",
			history:        nil,
			expectedScore:  0,
			expectedStatus: domain.StatusGreen,
			expectedFactors: map[string]float64{
				domain.FactorBreach: 0, domain.FactorMaliciousURLs: 0,
				domain.FactorSuspiciousMessages: 0, domain.FactorPassword: 0,
			},
			expectedAdvice: []string{
				"Continue practicing good cybersecurity habits",
				"Regularly update your security knowledge",
			},
		},
		{
			name:           "ten malicious urls saturate one factor",
			history:        records(domain.KindURL, domain.LabelMalicious, 10),
			expectedScore:  25,
			expectedStatus: domain.StatusGreen,
			expectedFactors: map[string]float64{
				domain.FactorBreach: 0, domain.FactorMaliciousURLs: 1,
				domain.FactorSuspiciousMessages: 0, domain.FactorPassword: 0,
			},
			expectedAdvice: []string{"Be cautious when clicking links, especially in emails or messages"},
		},
		{
			name:           "suspicious urls count toward the url factor",
			history:        records(domain.KindURL, domain.LabelSuspicious, 2),
			expectedScore:  10,
			expectedStatus: domain.StatusGreen,
			expectedFactors: map[string]float64{
				domain.FactorMaliciousURLs: 0.4,
			},
			expectedAdvice: []string{
				"Continue practicing good cybersecurity habits",
				"Regularly update your security knowledge",
			},
		},
		{
			name:           "safe scans carry no risk",
			history:        append(records(domain.KindURL, domain.LabelSafe, 4), records(domain.KindMessage, domain.LabelSafe, 4)...),
			expectedScore:  0,
			expectedStatus: domain.StatusGreen,
		},
		{
			name:           "one compromised password",
			history:        records(domain.KindPassword, domain.PredictionCompromised, 1),
			expectedScore:  6.67,
			expectedStatus: domain.StatusGreen,
			expectedFactors: map[string]float64{
				domain.FactorPassword: 1.0 / 3.0,
			},
		},
		{
			name: "everything saturated",
			history: concat(
				records(domain.KindEmail, domain.PredictionBreachDetected, 10),
				records(domain.KindURL, domain.LabelMalicious, 5),
				records(domain.KindMessage, domain.LabelScam, 10),
				records(domain.KindPassword, domain.PredictionCompromised, 3),
			),
			expectedScore:  100,
			expectedStatus: domain.StatusRed,
			expectedAdvice: []string{
				"Review your accounts for data breaches and change passwords",
				"Be cautious when clicking links, especially in emails or messages",
				"Enable scam detection on all messaging platforms",
				"Use a password manager and enable two-factor authentication",
			},
		},
		{
			name: "yellow band",
			history: concat(
				records(domain.KindEmail, "safe", 10),
				records(domain.KindMessage, domain.LabelSuspicious, 2),
			),
			expectedScore:  35,
			expectedStatus: domain.StatusYellow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := agg.Compute(tt.history, asOf)

			assert.InDelta(t, tt.expectedScore, score.Score, 1e-9)
			assert.Equal(t, tt.expectedStatus, score.Status)
			assert.Equal(t, domain.StatusForScore(score.Score), score.Status)
			assert.GreaterOrEqual(t, score.Score, 0.0)
			assert.LessOrEqual(t, score.Score, 100.0)
			assert.Len(t, score.Factors, 4)
			assert.Equal(t, asOf, score.LastUpdated)

			for name, expected := range tt.expectedFactors {
				f, ok := score.Factor(name)
				require.True(t, ok, "missing factor %s", name)
				assert.InDelta(t, expected, f.Score, 1e-9, "factor %s", name)
			}
			if tt.expectedAdvice != nil {
				assert.Equal(t, tt.expectedAdvice, score.Recommendations)
			}
		})
	}
}

func TestAggregator_Idempotent(t *testing.T) {
	agg := newAggregator(t)
	history := concat(
		records(domain.KindURL, domain.LabelMalicious, 3),
		records(domain.KindMessage, domain.LabelScam, 4),
		records(domain.KindEmail, domain.PredictionBreachDetected, 2),
	)

	assert.Equal(t, agg.Compute(history, asOf), agg.Compute(history, asOf))
}

func TestStatusBands(t *testing.T) {
	tests := []struct {
		score    float64
		expected domain.RiskStatus
	}{
		{0, domain.StatusGreen},
		{29.99, domain.StatusGreen},
		{30, domain.StatusYellow},
		{69.99, domain.StatusYellow},
		{70, domain.StatusRed},
		{100, domain.StatusRed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, domain.StatusForScore(tt.score), "score %v", tt.score)
	}
}

func TestPlatformInsights(t *testing.T) {
	t.Run("untagged scans spread with remainder to android then web", func(t *testing.T) {
		insights := platformInsights(records(domain.KindURL, domain.LabelSafe, 5))
		assert.Equal(t, 2, insights["android"].Scans)
		assert.Equal(t, 2, insights["web"].Scans)
		assert.Equal(t, 1, insights["browser_extension"].Scans)
		assert.InDelta(t, 0.4, insights["android"].Risks, 1e-9)
	})

	t.Run("tagged scans counted directly", func(t *testing.T) {
		history := records(domain.KindMessage, domain.LabelSafe, 4)
		for i := range history {
			history[i].Platform = "browser_extension"
		}
		insights := platformInsights(history)
		assert.Equal(t, 0, insights["android"].Scans)
		assert.Equal(t, 4, insights["browser_extension"].Scans)
		assert.InDelta(t, 1.0, insights["browser_extension"].Risks, 1e-9)
	})

	t.Run("empty history still lists every platform", func(t *testing.T) {
		insights := platformInsights(nil)
		assert.Len(t, insights, 3)
		for _, p := range Platforms {
			assert.Zero(t, insights[p].Scans)
		}
	})
}

func concat(parts ...[]domain.ScanRecord) []domain.ScanRecord {
	var out []domain.ScanRecord
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
