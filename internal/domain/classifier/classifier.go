package classifier

import (
	"fmt"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// Classifier scores one kind of content against a fixed, ordered label set.
//
// Predict never fails: a classifier without a trained artifact answers with a
// uniform distribution and the first label. Load reports why an artifact could
// not be used so the caller can log it, but the classifier stays usable.
type Classifier interface {
	Kind() domain.ScanKind
	Labels() []string

	// Load reads the persisted artifact. On error the classifier is left in degraded mode.
	Load() error
	// Save persists the currently served model
	Save() error
	// Train fits a new model on parallel samples/labels, persists it and swaps it in
	Train(samples, labels []string) error
	Trained() bool
	Capability() domain.Capability

	Predict(content string) domain.ClassificationResult
	Explain(content string, result domain.ClassificationResult) domain.Explanation
	Analyze(content string) (domain.ClassificationResult, domain.Explanation)
}

// resultFromProba turns a class distribution into a result. Ties go to the
// earliest label.
func resultFromProba(labels []string, proba []float64) domain.ClassificationResult {
	sum := 0.0
	for _, p := range proba {
		sum += p
	}
	if sum <= 0 {
		return uniformResult(labels)
	}

	best := 0
	probabilities := make(map[string]float64, len(labels))
	for i, label := range labels {
		p := proba[i] / sum
		probabilities[label] = p
		if p > proba[best]/sum {
			best = i
		}
	}

	return domain.ClassificationResult{
		Label:         labels[best],
		Confidence:    probabilities[labels[best]],
		Probabilities: probabilities,
	}
}

// uniformResult is the degraded-mode answer of an untrained classifier
func uniformResult(labels []string) domain.ClassificationResult {
	p := 1 / float64(len(labels))
	probabilities := make(map[string]float64, len(labels))
	for _, label := range labels {
		probabilities[label] = p
	}
	return domain.ClassificationResult{
		Label:         labels[0],
		Confidence:    p,
		Probabilities: probabilities,
	}
}

// encodeLabels maps labels to class indices, rejecting mismatched or unknown input
func encodeLabels(known []string, samples, labels []string) ([]int, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", domain.ErrInvalidTrainingSet)
	}
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("%w: %d samples but %d labels", domain.ErrInvalidTrainingSet, len(samples), len(labels))
	}

	index := make(map[string]int, len(known))
	for i, label := range known {
		index[label] = i
	}

	y := make([]int, len(labels))
	for i, label := range labels {
		c, ok := index[label]
		if !ok {
			return nil, fmt.Errorf("%w: unknown label %q at row %d", domain.ErrInvalidTrainingSet, label, i)
		}
		y[i] = c
	}
	return y, nil
}

func labelIndex(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}
