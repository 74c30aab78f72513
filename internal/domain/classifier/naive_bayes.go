package classifier

import (
	"fmt"
	"math"
)

// minLogPrior stands in for log(0) for classes absent from the training set.
// JSON cannot carry -Inf, and exp(minLogPrior) underflows to zero anyway.
const minLogPrior = -690.0

// multinomialNB is a multinomial naive Bayes model with additive smoothing
type multinomialNB struct {
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"` // [class][feature]
}

// fitNaiveBayes estimates class priors and per-class feature distributions
func fitNaiveBayes(X []sparseVector, y []int, nClasses, nFeatures int, alpha float64) *multinomialNB {
	classCount := make([]float64, nClasses)
	featureCount := make([][]float64, nClasses)
	for c := range featureCount {
		featureCount[c] = make([]float64, nFeatures)
	}

	for i, row := range X {
		c := y[i]
		classCount[c]++
		for _, e := range row {
			featureCount[c][e.Index] += e.Value
		}
	}

	nb := &multinomialNB{
		ClassLogPrior:  make([]float64, nClasses),
		FeatureLogProb: make([][]float64, nClasses),
	}

	total := float64(len(X))
	for c := 0; c < nClasses; c++ {
		if classCount[c] > 0 {
			nb.ClassLogPrior[c] = math.Log(classCount[c] / total)
		} else {
			nb.ClassLogPrior[c] = minLogPrior
		}

		sum := 0.0
		for _, v := range featureCount[c] {
			sum += v
		}
		denom := math.Log(sum + alpha*float64(nFeatures))

		nb.FeatureLogProb[c] = make([]float64, nFeatures)
		for j, v := range featureCount[c] {
			nb.FeatureLogProb[c][j] = math.Log(v+alpha) - denom
		}
	}

	return nb
}

// predictProba returns the posterior distribution over classes
func (nb *multinomialNB) predictProba(x sparseVector) []float64 {
	jll := make([]float64, len(nb.ClassLogPrior))
	for c := range jll {
		jll[c] = nb.ClassLogPrior[c]
		for _, e := range x {
			jll[c] += e.Value * nb.FeatureLogProb[c][e.Index]
		}
	}
	return softmax(jll)
}

// classWeights returns the signed per-feature weight of class c: its log-probability
// relative to the mean across classes. Positive weights pull toward c.
func (nb *multinomialNB) classWeights(c int) []float64 {
	nClasses := len(nb.FeatureLogProb)
	nFeatures := len(nb.FeatureLogProb[c])

	weights := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		mean := 0.0
		for k := 0; k < nClasses; k++ {
			mean += nb.FeatureLogProb[k][j]
		}
		mean /= float64(nClasses)
		weights[j] = nb.FeatureLogProb[c][j] - mean
	}
	return weights
}

// softmax converts log-scores into probabilities that sum to 1
func softmax(scores []float64) []float64 {
	top := math.Inf(-1)
	for _, s := range scores {
		if s > top {
			top = s
		}
	}

	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - top)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// validate checks that a decoded model has nClasses rows of nFeatures weights
func (nb *multinomialNB) validate(nClasses, nFeatures int) error {
	if len(nb.ClassLogPrior) != nClasses || len(nb.FeatureLogProb) != nClasses {
		return fmt.Errorf("naive bayes has %d priors and %d weight rows, expected %d",
			len(nb.ClassLogPrior), len(nb.FeatureLogProb), nClasses)
	}
	for c, row := range nb.FeatureLogProb {
		if len(row) != nFeatures {
			return fmt.Errorf("naive bayes class %d has %d weights, expected %d", c, len(row), nFeatures)
		}
	}
	return nil
}
