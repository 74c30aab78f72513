// Package breach provides a breach directory backed by a fixed in-memory dataset.
// It stands in for a remote breach API and follows the same range-query protocol
// for passwords, so swapping in a real client does not change callers.
package breach

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/ports"
)

// prefixLength is how many hex characters of the SHA-1 hash are sent in a range query
const prefixLength = 5

// MockDirectory implements ports.BreachChecker over static data
type MockDirectory struct {
	accounts map[string][]domain.Breach
	// ranges maps a hash prefix to the suffixes (and occurrence counts) sharing it
	ranges map[string]map[string]int
}

var _ ports.BreachChecker = (*MockDirectory)(nil)

// NewMockDirectory creates a directory seeded with a few known breached accounts and passwords
func NewMockDirectory() *MockDirectory {
	d := &MockDirectory{
		accounts: map[string][]domain.Breach{
			"compromised@example.com": {
				{Name: "LinkedIn Breach 2021", Date: "2021-06-15", Count: 7500000},
				{Name: "Adobe Breach 2013", Date: "2013-10-04", Count: 152445165},
			},
			"test@example.com": {
				{Name: "Mock Data Breach", Date: "2022-01-01", Count: 10000},
			},
		},
		ranges: make(map[string]map[string]int),
	}

	// SHA-1 of "password" and "123456"
	d.addPwnedHash("5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8", 5)
	d.addPwnedHash("7C4A8D09CA3762AF61E59520943DC26494F8941B", 37)
	return d
}

func (d *MockDirectory) addPwnedHash(hash string, count int) {
	prefix, suffix := hash[:prefixLength], hash[prefixLength:]
	if d.ranges[prefix] == nil {
		d.ranges[prefix] = make(map[string]int)
	}
	d.ranges[prefix][suffix] = count
}

// CheckEmail returns the breaches an address appeared in
func (d *MockDirectory) CheckEmail(ctx context.Context, email string) (*domain.BreachResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	breaches := d.accounts[strings.ToLower(strings.TrimSpace(email))]
	out := make([]domain.Breach, len(breaches))
	copy(out, breaches)

	return &domain.BreachResult{
		Email:       email,
		BreachCount: len(out),
		Breaches:    out,
		RiskLevel:   BreachRiskLevel(len(out)),
	}, nil
}

// CheckPassword hashes the password, queries the range of its 5-character
// prefix and matches the suffix locally.
func (d *MockDirectory) CheckPassword(ctx context.Context, password string) (*domain.PasswordResult, error) {
	sum := sha1.Sum([]byte(password))
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := hash[:prefixLength], hash[prefixLength:]

	candidates, err := d.rangeQuery(ctx, prefix)
	if err != nil {
		return nil, err
	}
	count := candidates[suffix]

	status := "safe"
	if count > 0 {
		status = domain.PredictionCompromised
	}
	return &domain.PasswordResult{
		HashPrefix:       prefix,
		CompromisedCount: count,
		SafetyStatus:     status,
		Recommendation:   PasswordRecommendation(count),
	}, nil
}

// rangeQuery is the only place a hash prefix is looked up
func (d *MockDirectory) rangeQuery(ctx context.Context, prefix string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.ranges[prefix], nil
}

// BreachRiskLevel grades an account by how many breaches it appeared in
func BreachRiskLevel(breachCount int) string {
	switch {
	case breachCount == 0:
		return "low"
	case breachCount <= 2:
		return "medium"
	default:
		return "high"
	}
}

// PasswordRecommendation returns the advice shown for a password seen count times
func PasswordRecommendation(count int) string {
	switch {
	case count == 0:
		return "Your password was not found in known data breaches. Good job!"
	case count <= 10:
		return "Your password has appeared in a few data breaches. Consider changing it."
	default:
		return "Your password has appeared in many data breaches! Change it immediately and never reuse it."
	}
}
