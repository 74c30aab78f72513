package domain

import (
	"encoding/json"
	"time"
)

// RiskStatus is the traffic-light band of an aggregate score
type RiskStatus string

const (
	StatusGreen  RiskStatus = "green"
	StatusYellow RiskStatus = "yellow"
	StatusRed    RiskStatus = "red"
)

// StatusForScore maps a 0-100 score to its band.
// Bands are contiguous with inclusive lower bounds: [0,30) green, [30,70) yellow, [70,100] red.
func StatusForScore(score float64) RiskStatus {
	switch {
	case score >= 70:
		return StatusRed
	case score >= 30:
		return StatusYellow
	default:
		return StatusGreen
	}
}

// Factor names as exposed by the risk score output
const (
	FactorBreach             = "breach_risk"
	FactorMaliciousURLs      = "malicious_urls"
	FactorSuspiciousMessages = "suspicious_messages"
	FactorPassword           = "password_risk"
)

// RiskFactor is one weighted signal of the account-level score
type RiskFactor struct {
	Name   string  `json:"-"`
	Score  float64 `json:"score"`  // normalized to [0,1]
	Weight float64 `json:"weight"` // fixed constant
}

// PlatformInsight is an approximate per-platform breakdown of scan activity
type PlatformInsight struct {
	Scans int     `json:"scans"`
	Risks float64 `json:"risks"`
}

// RiskScore is the account-level verdict derived fresh from a full history snapshot
type RiskScore struct {
	Score            float64                    `json:"score"`
	Status           RiskStatus                 `json:"status"`
	LastUpdated      time.Time                  `json:"last_updated"`
	Factors          []RiskFactor               `json:"-"`
	PlatformInsights map[string]PlatformInsight `json:"platform_insights"`
	Recommendations  []string                   `json:"recommendations"`
}

// Factor returns the factor with the given name
func (r RiskScore) Factor(name string) (RiskFactor, bool) {
	for _, f := range r.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return RiskFactor{}, false
}

// MarshalJSON renders factors as a name -> {score, weight} mapping
func (r RiskScore) MarshalJSON() ([]byte, error) {
	type plain RiskScore
	factors := make(map[string]RiskFactor, len(r.Factors))
	for _, f := range r.Factors {
		factors[f.Name] = f
	}
	return json.Marshal(struct {
		plain
		Factors map[string]RiskFactor `json:"factors"`
	}{plain: plain(r), Factors: factors})
}
