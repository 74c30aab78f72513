// Package risk converts individual verdicts into 0-100 risk contributions and
// aggregates a user's full scan history into an account-level RiskScore.
package risk

import (
	"math"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// labelRisk scales a classifier's confidence by how dangerous its label is
func labelRisk(result domain.ClassificationResult, dangerous string) float64 {
	switch result.Label {
	case dangerous:
		return result.Confidence * 100
	case domain.LabelSuspicious:
		return result.Confidence * 50
	default:
		return result.Confidence * 10
	}
}

// MessageRisk maps a message verdict to a 0-100 contribution
func MessageRisk(result domain.ClassificationResult) float64 {
	return labelRisk(result, domain.LabelScam)
}

// URLRisk maps a URL verdict to a 0-100 contribution
func URLRisk(result domain.ClassificationResult) float64 {
	return labelRisk(result, domain.LabelMalicious)
}

// BreachRisk grows by 10 per known breach, capped at 100
func BreachRisk(breachCount int) float64 {
	return math.Min(float64(breachCount)*10, 100)
}

// PasswordRisk is binary: any compromise is maximal risk regardless of count
func PasswordRisk(compromised bool) float64 {
	if compromised {
		return 100
	}
	return 0
}

// Contribution recomputes the 0-100 contribution of a stored scan
func Contribution(record domain.ScanRecord) float64 {
	r := record.Result
	switch record.Kind {
	case domain.KindMessage:
		return MessageRisk(domain.ClassificationResult{Label: r.Prediction, Confidence: r.Confidence})
	case domain.KindURL:
		return URLRisk(domain.ClassificationResult{Label: r.Prediction, Confidence: r.Confidence})
	case domain.KindEmail:
		if r.Breach != nil {
			return BreachRisk(r.Breach.BreachCount)
		}
		return 0
	case domain.KindPassword:
		return PasswordRisk(isCompromised(r))
	}
	return 0
}

func isCompromised(r domain.ScanResult) bool {
	if r.Password != nil {
		return r.Password.SafetyStatus == domain.PredictionCompromised
	}
	return r.Prediction == domain.PredictionCompromised
}
