package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/domain/classifier"
	"github.com/safeguard/safety-assistant/internal/domain/features"
	"github.com/safeguard/safety-assistant/internal/domain/risk"
	"github.com/safeguard/safety-assistant/internal/ports"
)

const (
	// DefaultHistoryLimit is applied when a history request does not ask for a size
	DefaultHistoryLimit = 50
	// DefaultNotifyThreshold is the per-scan risk at which operators are alerted
	DefaultNotifyThreshold = 70.0

	rawPreviewLength    = 100
	maskedPreviewLength = 50
)

// ScanRequest is one piece of content submitted for analysis
type ScanRequest struct {
	Content  string          `json:"content"`
	Kind     domain.ScanKind `json:"scan_type"`
	Platform string          `json:"platform,omitempty"`
}

// ScanOutcome is the verdict returned to the caller of Analyze.
// Details holds the kind-specific payload: an Explanation for message and URL
// scans, a BreachResult for email scans and a PasswordResult for password scans.
type ScanOutcome struct {
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Details       any                `json:"details"`
	RiskScore     float64            `json:"risk_score"`
	ScanID        *uuid.UUID         `json:"scan_id,omitempty"`
}

// ScanOption customizes a ScanService
type ScanOption func(*ScanService)

// WithNotifier alerts n about every scan whose risk reaches threshold
func WithNotifier(n ports.Notifier, threshold float64) ScanOption {
	return func(s *ScanService) {
		s.notifier = n
		s.notifyThreshold = threshold
	}
}

// WithEnricher attaches network ownership details to URL scans of IP-literal hosts
func WithEnricher(e ports.NetworkEnricher) ScanOption {
	return func(s *ScanService) { s.enricher = e }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) ScanOption {
	return func(s *ScanService) { s.now = now }
}

// ScanService orchestrates content scanning, scan history and account risk
type ScanService struct {
	storage    ports.Storage
	message    classifier.Classifier
	url        classifier.Classifier
	breach     ports.BreachChecker
	aggregator *risk.Aggregator
	logger     *zap.Logger

	notifier        ports.Notifier
	notifyThreshold float64
	enricher        ports.NetworkEnricher
	now             func() time.Time
}

// NewScanService creates a scan service with dependency injection
func NewScanService(
	storage ports.Storage,
	message classifier.Classifier,
	url classifier.Classifier,
	breach ports.BreachChecker,
	aggregator *risk.Aggregator,
	logger *zap.Logger,
	opts ...ScanOption,
) *ScanService {
	s := &ScanService{
		storage:         storage,
		message:         message,
		url:             url,
		breach:          breach,
		aggregator:      aggregator,
		logger:          logger.With(zap.String("component", "scan_service")),
		notifyThreshold: DefaultNotifyThreshold,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze scores a piece of content and, for identified users, appends it to their history.
//
// A zero userID scans anonymously: nothing is persisted and the outcome carries no scan ID.
// Failing to persist a scan is logged and does not fail the analysis.
func (s *ScanService) Analyze(ctx context.Context, userID uuid.UUID, req ScanRequest) (*ScanOutcome, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, req.Kind)
	}

	outcome, result, reasons, err := s.score(ctx, req)
	if err != nil {
		return nil, err
	}

	if userID != uuid.Nil {
		record := s.record(ctx, userID, req, result)
		if err := s.storage.SaveScan(ctx, record); err != nil {
			s.logger.Warn("could not save scan result",
				zap.String("user_id", userID.String()),
				zap.String("scan_type", string(req.Kind)),
				zap.Error(err))
		} else {
			outcome.ScanID = &record.ID
		}
	}

	s.alert(ctx, userID, req.Kind, outcome, reasons)
	return outcome, nil
}

// score dispatches the request to the signal that handles its kind
func (s *ScanService) score(ctx context.Context, req ScanRequest) (*ScanOutcome, domain.ScanResult, []string, error) {
	switch req.Kind {
	case domain.KindMessage:
		result, explanation := s.message.Analyze(req.Content)
		return s.classified(result, explanation, risk.MessageRisk(result))

	case domain.KindURL:
		result, explanation := s.url.Analyze(req.Content)
		explanation.Network = s.enrich(req.Content)
		return s.classified(result, explanation, risk.URLRisk(result))

	case domain.KindEmail:
		breach, err := s.breach.CheckEmail(ctx, req.Content)
		if err != nil {
			return nil, domain.ScanResult{}, nil, fmt.Errorf("failed to check email breaches: %w", err)
		}
		prediction := domain.LabelSafe
		if breach.BreachCount > 0 {
			prediction = domain.PredictionBreachDetected
		}
		outcome := &ScanOutcome{
			Prediction: prediction,
			Confidence: min(float64(breach.BreachCount)/10, 1),
			Details:    breach,
			RiskScore:  risk.BreachRisk(breach.BreachCount),
		}
		result := domain.ScanResult{
			Prediction: outcome.Prediction,
			Confidence: outcome.Confidence,
			RiskScore:  outcome.RiskScore,
			Breach:     breach,
		}
		reasons := []string{fmt.Sprintf("Address appears in %d known data breaches", breach.BreachCount)}
		return outcome, result, reasons, nil

	case domain.KindPassword:
		password, err := s.breach.CheckPassword(ctx, req.Content)
		if err != nil {
			return nil, domain.ScanResult{}, nil, fmt.Errorf("failed to check password safety: %w", err)
		}
		compromised := password.SafetyStatus == domain.PredictionCompromised
		confidence := 0.1
		if compromised {
			confidence = 0.9
		}
		outcome := &ScanOutcome{
			Prediction: password.SafetyStatus,
			Confidence: confidence,
			Details:    password,
			RiskScore:  risk.PasswordRisk(compromised),
		}
		result := domain.ScanResult{
			Prediction: outcome.Prediction,
			Confidence: outcome.Confidence,
			RiskScore:  outcome.RiskScore,
			Password:   password,
		}
		return outcome, result, []string{password.Recommendation}, nil
	}
	return nil, domain.ScanResult{}, nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, req.Kind)
}

func (s *ScanService) classified(result domain.ClassificationResult, explanation domain.Explanation, riskScore float64) (*ScanOutcome, domain.ScanResult, []string, error) {
	outcome := &ScanOutcome{
		Prediction:    result.Label,
		Confidence:    result.Confidence,
		Probabilities: result.Probabilities,
		Details:       explanation,
		RiskScore:     riskScore,
	}
	stored := domain.ScanResult{
		Prediction:    result.Label,
		Confidence:    result.Confidence,
		Probabilities: result.Probabilities,
		RiskScore:     riskScore,
	}
	return outcome, stored, explanation.Reasons, nil
}

// enrich looks up the owner of an IP-literal URL host. Lookup failures leave the field empty.
func (s *ScanService) enrich(raw string) *domain.NetworkInfo {
	if s.enricher == nil {
		return nil
	}
	ip := net.ParseIP(features.Split(raw).Host)
	if ip == nil {
		return nil
	}
	info, err := s.enricher.Lookup(ip)
	if err != nil {
		s.logger.Debug("network enrichment unavailable", zap.String("ip", ip.String()), zap.Error(err))
		return nil
	}
	return info
}

// record builds the history entry for a scan, keeping only what the user's privacy settings allow
func (s *ScanService) record(ctx context.Context, userID uuid.UUID, req ScanRequest, result domain.ScanResult) *domain.ScanRecord {
	settings, err := s.PrivacySettings(ctx, userID)
	if err != nil {
		s.logger.Warn("could not load privacy settings, storing hashed content only",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		settings = domain.DefaultPrivacySettings(userID)
	}

	record := &domain.ScanRecord{
		ID:         uuid.New(),
		UserID:     userID,
		Kind:       req.Kind,
		Platform:   req.Platform,
		Anonymized: true,
		Result:     result,
		CreatedAt:  s.now().UTC(),
	}

	switch req.Kind {
	case domain.KindMessage, domain.KindURL:
		record.ContentHash = hashContent(req.Content)
	case domain.KindEmail:
		if settings.StoreRawContent {
			record.ContentPreview = truncate(req.Content, rawPreviewLength)
			record.Anonymized = false
		} else {
			record.ContentHash = hashContent(req.Content)
			record.ContentPreview = truncate(maskEmail(req.Content), maskedPreviewLength)
		}
	case domain.KindPassword:
		// nothing derived from a password is ever stored
	}
	return record
}

// alert notifies operators about a high-risk scan. Delivery is best-effort.
func (s *ScanService) alert(ctx context.Context, userID uuid.UUID, kind domain.ScanKind, outcome *ScanOutcome, reasons []string) {
	if s.notifier == nil || outcome.RiskScore < s.notifyThreshold {
		return
	}

	alert := domain.RiskAlert{
		ScanID:     outcome.ScanID,
		Kind:       kind,
		Prediction: outcome.Prediction,
		Confidence: outcome.Confidence,
		RiskScore:  outcome.RiskScore,
		Reasons:    reasons,
	}
	if userID != uuid.Nil {
		alert.UserID = &userID
	}

	if err := s.notifier.NotifyHighRisk(ctx, alert); err != nil {
		s.logger.Warn("failed to send high-risk alert",
			zap.String("scan_type", string(kind)),
			zap.Float64("risk_score", outcome.RiskScore),
			zap.Error(err))
	}
}

// SubmitFeedback records whether a scan verdict was correct. The scan must belong to the user.
func (s *ScanService) SubmitFeedback(ctx context.Context, userID, scanID uuid.UUID, isCorrect bool, comment string) (*domain.Feedback, error) {
	scan, err := s.storage.GetScan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scan: %w", err)
	}
	if scan == nil || scan.UserID != userID {
		return nil, fmt.Errorf("scan %s: %w", scanID, domain.ErrNotFound)
	}

	feedback := &domain.Feedback{
		ID:        uuid.New(),
		UserID:    userID,
		ScanID:    scanID,
		IsCorrect: isCorrect,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.storage.CreateFeedback(ctx, feedback); err != nil {
		return nil, fmt.Errorf("failed to submit feedback: %w", err)
	}

	s.logger.Info("feedback recorded",
		zap.String("scan_id", scanID.String()),
		zap.Bool("is_correct", isCorrect))
	return feedback, nil
}

// History returns a user's most recent scans, newest first
func (s *ScanService) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	records, err := s.storage.ListScans(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve scan history: %w", err)
	}
	return records, nil
}

// PrivacySettings returns a user's settings, or the defaults if they never chose any
func (s *ScanService) PrivacySettings(ctx context.Context, userID uuid.UUID) (domain.PrivacySettings, error) {
	settings, err := s.storage.GetPrivacySettings(ctx, userID)
	if err != nil {
		return domain.PrivacySettings{}, fmt.Errorf("failed to get privacy settings: %w", err)
	}
	if settings == nil {
		return domain.DefaultPrivacySettings(userID), nil
	}
	return *settings, nil
}

// UpdatePrivacySettings replaces a user's privacy settings
func (s *ScanService) UpdatePrivacySettings(ctx context.Context, userID uuid.UUID, settings domain.PrivacySettings) (domain.PrivacySettings, error) {
	if settings.AutoDeleteAfterDays < 0 {
		return domain.PrivacySettings{}, fmt.Errorf("%w: auto_delete_after_days must not be negative", ErrInvalidSettings)
	}
	settings.UserID = userID
	if err := s.storage.SavePrivacySettings(ctx, &settings); err != nil {
		return domain.PrivacySettings{}, fmt.Errorf("failed to update privacy settings: %w", err)
	}
	return settings, nil
}

// RiskScore recomputes a user's account-level risk from their full history
func (s *ScanService) RiskScore(ctx context.Context, userID uuid.UUID) (domain.RiskScore, error) {
	history, err := s.storage.ListScans(ctx, userID, 0)
	if err != nil {
		return domain.RiskScore{}, fmt.Errorf("failed to load scan history: %w", err)
	}
	return s.aggregator.Compute(history, s.now().UTC()), nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// truncate cuts s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// maskEmail keeps the first two characters of the local part and the domain
func maskEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domainPart, ok := strings.Cut(email, "@")
	if !ok {
		return strings.Repeat("*", min(len([]rune(email)), 8))
	}
	runes := []rune(local)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes) + "***@" + domainPart
}
