// Package config loads service settings from an optional .env file, an optional
// YAML file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

const defaultConfigPath = "config.yaml"

// defaultNotifyThreshold applies when neither the YAML file nor the environment sets one.
// Zero is a valid threshold that alerts on every scan.
const defaultNotifyThreshold = 70.0

type Config struct {
	AppEnv     string `yaml:"app_env"`
	ListenAddr string `yaml:"listen_addr"`

	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	MessageModelPath string `yaml:"message_model_path"`
	URLModelPath     string `yaml:"url_model_path"`
	TrainingDataPath string `yaml:"training_data_path"`
	// RetrainSchedule is a 5-field cron expression; empty disables scheduled retraining
	RetrainSchedule string `yaml:"retrain_schedule"`

	NotifyThreshold float64 `yaml:"notify_threshold"`
	SlackBotToken   string  `yaml:"slack_bot_token"`
	SlackChannelID  string  `yaml:"slack_channel_id"`

	GeoIPCountryDB string `yaml:"geoip_country_db"`
	GeoIPASNDB     string `yaml:"geoip_asn_db"`
}

// Load reads the configuration. A missing .env or YAML file is not an error.
func Load() (Config, error) {
	cfg := Config{NotifyThreshold: defaultNotifyThreshold}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := defaultConfigPath
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	envOverride(&cfg.AppEnv, "APP_ENV")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.StoreDriver, "STORE_DRIVER")
	envOverride(&cfg.DatabaseURL, "DATABASE_URL")
	envOverride(&cfg.SQLitePath, "SQLITE_PATH")
	envOverride(&cfg.MessageModelPath, "MESSAGE_MODEL_PATH")
	envOverride(&cfg.URLModelPath, "URL_MODEL_PATH")
	envOverride(&cfg.TrainingDataPath, "TRAINING_DATA_PATH")
	envOverrideAllowEmpty(&cfg.RetrainSchedule, "RETRAIN_SCHEDULE")
	if err := envOverrideFloat(&cfg.NotifyThreshold, "NOTIFY_THRESHOLD"); err != nil {
		return cfg, err
	}
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.GeoIPCountryDB, "GEOIP_COUNTRY_DB")
	envOverride(&cfg.GeoIPASNDB, "GEOIP_ASN_DB")

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverSQLite
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "./safety-assistant.db"
	}
	if cfg.MessageModelPath == "" {
		cfg.MessageModelPath = "./models/message_classifier.json"
	}
	if cfg.URLModelPath == "" {
		cfg.URLModelPath = "./models/url_classifier.json"
	}
	if cfg.TrainingDataPath == "" {
		cfg.TrainingDataPath = "./data/training.jsonl"
	}
}

// Validate reports the first setting that cannot be used
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when store_driver=%s", DriverPostgres)
		}
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("store_driver must be one of postgres, sqlite, memory, got '%s'", c.StoreDriver)
	}

	if c.NotifyThreshold < 0 || c.NotifyThreshold > 100 {
		return fmt.Errorf("invalid notify_threshold '%g': must be between 0 and 100", c.NotifyThreshold)
	}
	if (c.SlackBotToken == "") != (c.SlackChannelID == "") {
		return fmt.Errorf("slack_bot_token and slack_channel_id must be set together")
	}
	if c.RetrainSchedule != "" {
		if _, err := ParseSchedule(c.RetrainSchedule); err != nil {
			return fmt.Errorf("invalid retrain_schedule '%s': %w", c.RetrainSchedule, err)
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production logging
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SlackConfigured reports whether high-risk alerts can be delivered
func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

// GeoIPConfigured reports whether at least one GeoLite database is set
func (c Config) GeoIPConfigured() bool {
	return c.GeoIPCountryDB != "" || c.GeoIPASNDB != ""
}

// ParseSchedule parses a standard 5-field cron expression or a descriptor such as "@daily"
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(spec)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
