package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ScanKind identifies what kind of content a user submitted
type ScanKind string

const (
	KindMessage  ScanKind = "message"
	KindURL      ScanKind = "url"
	KindEmail    ScanKind = "email"
	KindPassword ScanKind = "password"
)

// Valid reports whether the kind is one the engine knows how to score
func (k ScanKind) Valid() bool {
	switch k {
	case KindMessage, KindURL, KindEmail, KindPassword:
		return true
	}
	return false
}

var (
	// ErrUnsupportedKind is returned for scan kinds outside message/url/email/password.
	// It is a caller error and is never retried.
	ErrUnsupportedKind = errors.New("unsupported scan type")

	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidTrainingSet is returned when samples and labels cannot be used for fitting
	ErrInvalidTrainingSet = errors.New("invalid training set")
)

// Message and URL labels, in the fixed order used by the classifiers
const (
	LabelSafe       = "safe"
	LabelSuspicious = "suspicious"
	LabelScam       = "scam"
	LabelMalicious  = "malicious"
)

// Email and password predictions
const (
	PredictionBreachDetected = "breach_detected"
	PredictionCompromised    = "compromised"
)

// MessageLabels is the label order of the message classifier
var MessageLabels = []string{LabelSafe, LabelSuspicious, LabelScam}

// URLLabels is the label order of the URL classifier
var URLLabels = []string{LabelSafe, LabelSuspicious, LabelMalicious}

// ContentSample is a piece of user-submitted content awaiting a verdict
type ContentSample struct {
	Content string   `json:"content"`
	Kind    ScanKind `json:"scan_type"`
}

// ClassificationResult is the output of one classify call.
// Probabilities always sum to 1 and Confidence is the largest probability.
type ClassificationResult struct {
	Label         string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Capability tells whether a loaded model exposes its internals for explanation
type Capability int

const (
	// Opaque models only answer predictions (e.g. untrained fallbacks)
	Opaque Capability = iota
	// Explainable models expose per-feature weights or importances
	Explainable
)

// BreachResult is what the breach directory returns for an email address
type BreachResult struct {
	Email       string   `json:"email"`
	BreachCount int      `json:"breach_count"`
	Breaches    []Breach `json:"breaches"`
	RiskLevel   string   `json:"risk_level"`
}

// Breach is one known data breach an address appeared in
type Breach struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PasswordResult is the outcome of a k-anonymity password lookup
type PasswordResult struct {
	HashPrefix       string `json:"password_hash_prefix"`
	CompromisedCount int    `json:"compromised_count"`
	SafetyStatus     string `json:"safety_status"` // "compromised" or "safe"
	Recommendation   string `json:"recommendation"`
}

// ScanResult is the persisted verdict of a scan, stored as an opaque JSON blob
type ScanResult struct {
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	RiskScore     float64            `json:"risk_score"`
	Breach        *BreachResult      `json:"breach,omitempty"`
	Password      *PasswordResult    `json:"password,omitempty"`
}

// ScanRecord is one append-only entry of a user's scan history
//
// Raw content of message and URL scans is never persisted: only a SHA-256 hash
// is kept. Email scans may keep a short preview depending on privacy settings.
type ScanRecord struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Kind           ScanKind   `json:"scan_type"`
	Platform       string     `json:"platform,omitempty"`
	ContentHash    string     `json:"-"`
	ContentPreview string     `json:"content"`
	Anonymized     bool       `json:"is_anonymized"`
	Result         ScanResult `json:"result"`
	CreatedAt      time.Time  `json:"timestamp"`
}

// Feedback is a user's verdict on whether a scan result was correct
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ScanID    uuid.UUID `json:"scan_id"`
	IsCorrect bool      `json:"is_correct"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// PrivacySettings controls what a user's scan history may retain
type PrivacySettings struct {
	UserID              uuid.UUID `json:"-"`
	StoreRawContent     bool      `json:"store_raw_content"`
	ShareAnonymousData  bool      `json:"share_anonymous_data"`
	AutoDeleteAfterDays int       `json:"auto_delete_after_days"`
}

// DefaultPrivacySettings returns the settings applied to users who never chose any
func DefaultPrivacySettings(userID uuid.UUID) PrivacySettings {
	return PrivacySettings{
		UserID:              userID,
		StoreRawContent:     false,
		ShareAnonymousData:  true,
		AutoDeleteAfterDays: 365,
	}
}

// NetworkInfo describes where an IP-literal URL host lives
type NetworkInfo struct {
	IP           string `json:"ip"`
	CountryCode  string `json:"country_code,omitempty"`
	ASN          uint   `json:"asn,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// RiskAlert is sent to the notifier when a single scan crosses the alert threshold
type RiskAlert struct {
	ScanID     *uuid.UUID
	UserID     *uuid.UUID
	Kind       ScanKind
	Prediction string
	Confidence float64
	RiskScore  float64
	Reasons    []string
}
