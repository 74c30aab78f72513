package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/safeguard/safety-assistant/internal/adapters/breach"
	"github.com/safeguard/safety-assistant/internal/adapters/dataset"
	"github.com/safeguard/safety-assistant/internal/adapters/geoip"
	httpadapter "github.com/safeguard/safety-assistant/internal/adapters/http"
	"github.com/safeguard/safety-assistant/internal/adapters/notify"
	"github.com/safeguard/safety-assistant/internal/adapters/storage"
	"github.com/safeguard/safety-assistant/internal/application"
	"github.com/safeguard/safety-assistant/internal/config"
	"github.com/safeguard/safety-assistant/internal/domain/classifier"
	"github.com/safeguard/safety-assistant/internal/domain/risk"
	"github.com/safeguard/safety-assistant/internal/ports"
	"github.com/safeguard/safety-assistant/internal/workers/retrain"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger depends on the config, so this is the only plain exit
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		os.Stderr.WriteString("logger error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting safety assistant",
		zap.String("env", cfg.AppEnv),
		zap.String("store", cfg.StoreDriver))

	// Initialize storage adapter (driven port implementation)
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	// Classifiers start in degraded mode when no artifact exists yet
	message := classifier.NewMessageClassifier(cfg.MessageModelPath)
	url := classifier.NewURLClassifier(cfg.URLModelPath)
	for _, c := range []classifier.Classifier{message, url} {
		if err := c.Load(); err != nil {
			logger.Warn("classifier running in degraded mode",
				zap.String("scan_type", string(c.Kind())),
				zap.Error(err))
		}
	}

	aggregator, err := risk.NewAggregator(risk.DefaultWeights())
	if err != nil {
		logger.Fatal("invalid risk weights", zap.Error(err))
	}

	opts := []application.ScanOption{}
	if cfg.SlackConfigured() {
		opts = append(opts, application.WithNotifier(
			notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannelID), cfg.NotifyThreshold))
		logger.Info("high-risk alerts enabled", zap.Float64("threshold", cfg.NotifyThreshold))
	}
	if cfg.GeoIPConfigured() {
		enricher, err := geoip.NewEnricher(cfg.GeoIPCountryDB, cfg.GeoIPASNDB)
		if err != nil {
			logger.Warn("network enrichment disabled", zap.Error(err))
		} else {
			defer enricher.Close()
			opts = append(opts, application.WithEnricher(enricher))
		}
	}

	// Initialize application services (dependency injection via constructor)
	scans := application.NewScanService(store, message, url, breach.NewMockDirectory(), aggregator, logger, opts...)
	training := application.NewTrainingService(dataset.NewJSONLSource(cfg.TrainingDataPath), logger, message, url)

	if cfg.RetrainSchedule != "" {
		schedule, err := config.ParseSchedule(cfg.RetrainSchedule)
		if err != nil {
			logger.Fatal("invalid retrain schedule", zap.Error(err))
		}
		go retrain.NewScheduler(schedule, training, logger).Run(ctx)
		logger.Info("scheduled retraining enabled", zap.String("schedule", cfg.RetrainSchedule))
	}

	r := chi.NewRouter()
	r.Mount("/", httpadapter.New(scans, logger, message, url).Routes())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("listening", zap.String("addr", cfg.ListenAddr))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func openStore(ctx context.Context, cfg config.Config) (ports.Storage, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err := storage.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewSQLiteStore(cfg.SQLitePath)
	}
}
