// Package explain turns a classification into the reasons, ranked feature
// contributions and structural concerns shown to the user. Explanations are
// informational only and never change the verdict they describe.
package explain

import (
	"math"
	"sort"
	"strings"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// topContributions is how many positive and negative contributions are kept
const topContributions = 10

// MessageModel is what a trained message model exposes for explanation
type MessageModel interface {
	Capability() domain.Capability
	// TermWeights returns the vocabulary and the signed weight of every term for label
	TermWeights(label string) (terms []string, weights []float64, ok bool)
	// Attribute returns additive per-term contributions to the score of label
	Attribute(content, label string) (*domain.Attribution, error)
}

// URLModel is what a trained URL model exposes for explanation
type URLModel interface {
	Capability() domain.Capability
	// Importances returns one importance per URL feature, in feature order
	Importances() ([]float64, bool)
}

// rule is one entry of a fixed reason checklist
type rule struct {
	reason string
	match  func(raw, lower string) bool
}

// applyRules evaluates rules in order and falls back when none matches
func applyRules(rules []rule, raw, fallback string) []string {
	lower := strings.ToLower(raw)

	reasons := make([]string, 0)
	for _, r := range rules {
		if r.match(raw, lower) {
			reasons = append(reasons, r.reason)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fallback)
	}
	return reasons
}

// containsAny checks if text contains any of the keywords
func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// rankSigned returns the strongest positive weights (descending) followed by the
// strongest negative weights (most negative first), at most limit of each.
func rankSigned(names []string, weights []float64, limit int) []domain.FeatureContribution {
	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if weights[idx[a]] != weights[idx[b]] {
			return weights[idx[a]] > weights[idx[b]]
		}
		return names[idx[a]] < names[idx[b]]
	})

	out := make([]domain.FeatureContribution, 0, 2*limit)
	for _, i := range idx {
		if len(out) == limit || weights[i] <= 0 {
			break
		}
		out = append(out, contribution(names[i], weights[i]))
	}

	positives := len(out)
	for k := len(idx) - 1; k >= 0; k-- {
		i := idx[k]
		if len(out)-positives == limit || weights[i] >= 0 {
			break
		}
		out = append(out, contribution(names[i], weights[i]))
	}
	return out
}

func contribution(name string, weight float64) domain.FeatureContribution {
	return domain.FeatureContribution{Name: name, Weight: weight, Magnitude: math.Abs(weight)}
}
