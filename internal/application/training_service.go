package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/domain/classifier"
	"github.com/safeguard/safety-assistant/internal/ports"
)

// ErrNoTrainingData is returned when a dataset holds no usable samples for any classifier
var ErrNoTrainingData = errors.New("no training data")

// TrainingReport summarizes one retraining run
type TrainingReport struct {
	Samples  map[domain.ScanKind]int
	Skipped  int
	Duration time.Duration
}

// TrainingService retrains the content classifiers from a labeled dataset.
// Runs are serialized; classifiers keep serving their previous model until
// the new one is persisted and swapped in.
type TrainingService struct {
	source      ports.TrainingDataSource
	classifiers []classifier.Classifier
	byKind      map[domain.ScanKind]classifier.Classifier
	logger      *zap.Logger

	mu sync.Mutex
}

// NewTrainingService creates a training service for the given classifiers.
// Classifiers are trained in argument order; only the first classifier of each kind is used.
func NewTrainingService(source ports.TrainingDataSource, logger *zap.Logger, classifiers ...classifier.Classifier) *TrainingService {
	byKind := make(map[domain.ScanKind]classifier.Classifier, len(classifiers))
	ordered := make([]classifier.Classifier, 0, len(classifiers))
	for _, c := range classifiers {
		if _, dup := byKind[c.Kind()]; dup {
			continue
		}
		byKind[c.Kind()] = c
		ordered = append(ordered, c)
	}
	return &TrainingService{
		source:      source,
		classifiers: ordered,
		byKind:      byKind,
		logger:      logger.With(zap.String("component", "training_service")),
	}
}

// Retrain loads the dataset and refits every classifier that has samples.
// A classifier whose fit fails keeps its current model; the first such error is returned.
func (s *TrainingService) Retrain(ctx context.Context) (*TrainingReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	samples, err := s.source.LoadSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}

	type batch struct{ contents, labels []string }
	batches := make(map[domain.ScanKind]*batch)
	report := &TrainingReport{Samples: make(map[domain.ScanKind]int)}

	for _, sample := range samples {
		if _, ok := s.byKind[sample.Kind]; !ok {
			report.Skipped++
			continue
		}
		b, ok := batches[sample.Kind]
		if !ok {
			b = &batch{}
			batches[sample.Kind] = b
		}
		b.contents = append(b.contents, sample.Content)
		b.labels = append(b.labels, sample.Label)
	}
	if len(batches) == 0 {
		return nil, ErrNoTrainingData
	}

	var firstErr error
	for _, c := range s.classifiers {
		kind := c.Kind()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, ok := batches[kind]
		if !ok {
			s.logger.Warn("no training samples, keeping current model", zap.String("scan_type", string(kind)))
			continue
		}
		if err := c.Train(b.contents, b.labels); err != nil {
			s.logger.Error("retraining failed", zap.String("scan_type", string(kind)), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to train %s classifier: %w", kind, err)
			}
			continue
		}
		report.Samples[kind] = len(b.contents)
		s.logger.Info("classifier retrained",
			zap.String("scan_type", string(kind)),
			zap.Int("samples", len(b.contents)))
	}

	report.Duration = time.Since(start)
	if report.Skipped > 0 {
		s.logger.Warn("ignored samples of unsupported kinds", zap.Int("skipped", report.Skipped))
	}
	return report, firstErr
}
