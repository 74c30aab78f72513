package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// Weights are the fixed contribution of each factor to the aggregate score
type Weights struct {
	Breach             float64
	MaliciousURLs      float64
	SuspiciousMessages float64
	Password           float64
}

// DefaultWeights returns breach .30, malicious URLs .25, suspicious messages .25, password .20
func DefaultWeights() Weights {
	return Weights{
		Breach:             0.30,
		MaliciousURLs:      0.25,
		SuspiciousMessages: 0.25,
		Password:           0.20,
	}
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.Breach + w.MaliciousURLs + w.SuspiciousMessages + w.Password
}

// ErrInvalidWeights is returned when weights are negative or do not sum to 1
var ErrInvalidWeights = errors.New("risk weights must be non-negative and sum to 1")

// Saturation points: the count at which a factor reaches its maximum of 1
const (
	breachScansCap         = 10
	riskyURLsCap           = 5
	riskyMessagesCap       = 10
	compromisedPasswordCap = 3
)

// Platforms lists the client platforms scans are attributed to, in attribution order
var Platforms = []string{"android", "web", "browser_extension"}

const (
	recommendBreach   = "Review your accounts for data breaches and change passwords"
	recommendURLs     = "Be cautious when clicking links, especially in emails or messages"
	recommendMessages = "Enable scam detection on all messaging platforms"
	recommendPassword = "Use a password manager and enable two-factor authentication"
	recommendHabits   = "Continue practicing good cybersecurity habits"
	recommendLearning = "Regularly update your security knowledge"
)

// Aggregator computes account-level risk scores from scan histories
type Aggregator struct {
	weights Weights
}

// NewAggregator validates the weights and returns an aggregator bound to them
func NewAggregator(w Weights) (*Aggregator, error) {
	if w.Breach < 0 || w.MaliciousURLs < 0 || w.SuspiciousMessages < 0 || w.Password < 0 {
		return nil, fmt.Errorf("%w: got %+v", ErrInvalidWeights, w)
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return nil, fmt.Errorf("%w: sum is %v", ErrInvalidWeights, w.Sum())
	}
	return &Aggregator{weights: w}, nil
}

// Weights returns the weights the aggregator was built with
func (a *Aggregator) Weights() Weights {
	return a.weights
}

// Compute derives a RiskScore from the complete history of one user.
// The result depends only on history and asOf.
func (a *Aggregator) Compute(history []domain.ScanRecord, asOf time.Time) domain.RiskScore {
	var breachScans, riskyURLs, riskyMessages, compromised int
	for _, rec := range history {
		switch rec.Kind {
		case domain.KindEmail:
			breachScans++
		case domain.KindURL:
			if p := rec.Result.Prediction; p == domain.LabelMalicious || p == domain.LabelSuspicious {
				riskyURLs++
			}
		case domain.KindMessage:
			if p := rec.Result.Prediction; p == domain.LabelSuspicious || p == domain.LabelScam {
				riskyMessages++
			}
		case domain.KindPassword:
			if isCompromised(rec.Result) {
				compromised++
			}
		}
	}

	factors := []domain.RiskFactor{
		{Name: domain.FactorBreach, Score: saturate(breachScans, breachScansCap), Weight: a.weights.Breach},
		{Name: domain.FactorMaliciousURLs, Score: saturate(riskyURLs, riskyURLsCap), Weight: a.weights.MaliciousURLs},
		{Name: domain.FactorSuspiciousMessages, Score: saturate(riskyMessages, riskyMessagesCap), Weight: a.weights.SuspiciousMessages},
		{Name: domain.FactorPassword, Score: saturate(compromised, compromisedPasswordCap), Weight: a.weights.Password},
	}

	weighted := 0.0
	for _, f := range factors {
		weighted += f.Score * f.Weight
	}
	score := clamp(math.Round(weighted*100*100)/100, 0, 100)

	return domain.RiskScore{
		Score:            score,
		Status:           domain.StatusForScore(score),
		LastUpdated:      asOf,
		Factors:          factors,
		PlatformInsights: platformInsights(history),
		Recommendations:  recommendations(factors),
	}
}

func saturate(count, limit int) float64 {
	return math.Min(float64(count)/float64(limit), 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func recommendations(factors []domain.RiskFactor) []string {
	advice := map[string]string{
		domain.FactorBreach:             recommendBreach,
		domain.FactorMaliciousURLs:      recommendURLs,
		domain.FactorSuspiciousMessages: recommendMessages,
		domain.FactorPassword:           recommendPassword,
	}

	out := make([]string, 0, len(factors))
	for _, f := range factors {
		if f.Score > 0.5 {
			out = append(out, advice[f.Name])
		}
	}
	if len(out) == 0 {
		out = append(out, recommendHabits, recommendLearning)
	}
	return out
}

// platformInsights is a best-effort breakdown. Records tagged with a known
// platform count toward it directly; the rest are spread evenly, remainder
// first to android then web. Risks is each platform's share of all scans.
func platformInsights(history []domain.ScanRecord) map[string]domain.PlatformInsight {
	scans := make(map[string]int, len(Platforms))
	for _, p := range Platforms {
		scans[p] = 0
	}

	untagged := 0
	for _, rec := range history {
		if _, known := scans[rec.Platform]; known {
			scans[rec.Platform]++
			continue
		}
		untagged++
	}

	share, remainder := untagged/len(Platforms), untagged%len(Platforms)
	for i, p := range Platforms {
		scans[p] += share
		if i < remainder {
			scans[p]++
		}
	}

	out := make(map[string]domain.PlatformInsight, len(Platforms))
	for _, p := range Platforms {
		insight := domain.PlatformInsight{Scans: scans[p]}
		if len(history) > 0 {
			insight.Risks = float64(scans[p]) / float64(len(history))
		}
		out[p] = insight
	}
	return out
}
