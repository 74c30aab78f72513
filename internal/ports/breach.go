package ports

import (
	"context"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// BreachChecker looks up email addresses and passwords in known data breaches
type BreachChecker interface {
	// CheckEmail returns the breaches an address appeared in
	CheckEmail(ctx context.Context, email string) (*domain.BreachResult, error)

	// CheckPassword checks a password by k-anonymity: only a hash prefix leaves the caller
	CheckPassword(ctx context.Context, password string) (*domain.PasswordResult, error)
}
