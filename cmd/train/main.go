package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/safeguard/safety-assistant/internal/adapters/dataset"
	"github.com/safeguard/safety-assistant/internal/application"
	"github.com/safeguard/safety-assistant/internal/config"
	"github.com/safeguard/safety-assistant/internal/domain/classifier"
)

// train fits both classifiers once from the configured dataset and writes their artifacts
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	newLogger := zap.NewDevelopment
	if cfg.IsProduction() {
		newLogger = zap.NewProduction
	}
	logger, err := newLogger()
	if err != nil {
		os.Stderr.WriteString("logger error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	message := classifier.NewMessageClassifier(cfg.MessageModelPath)
	url := classifier.NewURLClassifier(cfg.URLModelPath)
	training := application.NewTrainingService(dataset.NewJSONLSource(cfg.TrainingDataPath), logger, message, url)

	report, err := training.Retrain(ctx)
	if err != nil {
		logger.Fatal("training failed", zap.String("dataset", cfg.TrainingDataPath), zap.Error(err))
	}

	logger.Info("training complete",
		zap.Int("message_samples", report.Samples[message.Kind()]),
		zap.Int("url_samples", report.Samples[url.Kind()]),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
		zap.String("message_model", cfg.MessageModelPath),
		zap.String("url_model", cfg.URLModelPath))
}
