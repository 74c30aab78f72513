package ports

import (
	"context"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// LabeledSample is one row of a training dataset
type LabeledSample struct {
	Kind    domain.ScanKind `json:"kind"`
	Content string          `json:"content"`
	Label   string          `json:"label"`
}

// TrainingDataSource supplies labeled samples for retraining the classifiers
type TrainingDataSource interface {
	LoadSamples(ctx context.Context) ([]LabeledSample, error)
}
