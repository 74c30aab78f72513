package classifier

import (
	"errors"
	"math"
	"sort"

	"github.com/safeguard/safety-assistant/internal/domain"
)

const (
	// maxBackground is how many training documents are kept as the attribution baseline
	maxBackground = 100
	// maxAttributionValues is how many contributions are reported per prediction
	maxAttributionValues = 20
)

var errNoBackground = errors.New("attribution background set is empty")

// attributionExplainer splits the naive Bayes log-score of a label into
// additive per-term contributions, measured against the mean background document.
// For a linear score s(x) = b + w·x the contribution of term j is
// w_j·(x_j - mean_j) and the base value is b + w·mean.
type attributionExplainer struct {
	mean []float64
}

func newAttributionExplainer(v *tfidfVectorizer, background []string) (*attributionExplainer, error) {
	if len(background) == 0 {
		return nil, errNoBackground
	}

	mean := make([]float64, v.size())
	for _, doc := range background {
		for _, e := range v.transform(doc) {
			mean[e.Index] += e.Value
		}
	}
	n := float64(len(background))
	for j := range mean {
		mean[j] /= n
	}
	return &attributionExplainer{mean: mean}, nil
}

func (a *attributionExplainer) attribute(nb *multinomialNB, vocabulary []string, x sparseVector, class int, label string) *domain.Attribution {
	w := nb.FeatureLogProb[class]

	dense := make([]float64, len(a.mean))
	for _, e := range x {
		dense[e.Index] = e.Value
	}

	base := nb.ClassLogPrior[class]
	score := base
	values := make([]domain.AttributionValue, 0, len(x))
	for j, m := range a.mean {
		base += w[j] * m
		if dense[j] == 0 && m == 0 {
			continue
		}
		phi := w[j] * (dense[j] - m)
		score += w[j] * dense[j]
		values = append(values, domain.AttributionValue{Feature: vocabulary[j], Value: phi})
	}

	sort.SliceStable(values, func(i, j int) bool {
		ai, aj := math.Abs(values[i].Value), math.Abs(values[j].Value)
		if ai != aj {
			return ai > aj
		}
		return values[i].Feature < values[j].Feature
	})
	if len(values) > maxAttributionValues {
		values = values[:maxAttributionValues]
	}

	return &domain.Attribution{
		Label:     label,
		BaseValue: base,
		Score:     score,
		Values:    values,
	}
}
