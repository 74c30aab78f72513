package classifier

import (
	"math"

	"github.com/safeguard/safety-assistant/internal/domain/features"
)

// standardScaler centers each feature on its training mean and divides by its
// training standard deviation. Constant features keep a scale of 1.
type standardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func fitScaler(X []features.Vector) *standardScaler {
	s := &standardScaler{
		Mean:  make([]float64, features.Count),
		Scale: make([]float64, features.Count),
	}
	n := float64(len(X))

	for _, row := range X {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		std := math.Sqrt(s.Scale[j] / n)
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

func (s *standardScaler) transform(v features.Vector) []float64 {
	out := make([]float64, len(v))
	for j, x := range v {
		out[j] = (x - s.Mean[j]) / s.Scale[j]
	}
	return out
}
