package ports

import (
	"context"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// Notifier delivers high-risk scan alerts to an operator channel
type Notifier interface {
	NotifyHighRisk(ctx context.Context, alert domain.RiskAlert) error
}
