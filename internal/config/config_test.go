package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"APP_ENV", "LISTEN_ADDR", "STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
	"MESSAGE_MODEL_PATH", "URL_MODEL_PATH", "TRAINING_DATA_PATH", "RETRAIN_SCHEDULE",
	"NOTIFY_THRESHOLD", "SLACK_BOT_TOKEN", "SLACK_CHANNEL_ID", "GEOIP_COUNTRY_DB", "GEOIP_ASN_DB",
}

// isolate clears every setting the loader reads so the host environment cannot leak in
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "./safety-assistant.db", cfg.SQLitePath)
	assert.Equal(t, "./data/training.jsonl", cfg.TrainingDataPath)
	assert.Equal(t, 70.0, cfg.NotifyThreshold)
	assert.Empty(t, cfg.RetrainSchedule)
	assert.False(t, cfg.SlackConfigured())
	assert.False(t, cfg.GeoIPConfigured())
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app_env: production
store_driver: postgres
database_url: postgres://yaml@localhost/safety
retrain_schedule: "0 3 * * *"
notify_threshold: 85
slack_bot_token: xoxb-yaml
slack_channel_id: C123
geoip_asn_db: /data/GeoLite2-ASN.mmdb
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DATABASE_URL", "postgres://env@localhost/safety")
	t.Setenv("NOTIFY_THRESHOLD", "90")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://env@localhost/safety", cfg.DatabaseURL, "env wins over yaml")
	assert.Equal(t, 90.0, cfg.NotifyThreshold)
	assert.Equal(t, "0 3 * * *", cfg.RetrainSchedule)
	assert.True(t, cfg.SlackConfigured())
	assert.True(t, cfg.GeoIPConfigured())
}

func TestLoad_EmptyScheduleOverrideDisablesRetraining(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`retrain_schedule: "@daily"`), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RETRAIN_SCHEDULE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.RetrainSchedule)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantMsg string
	}{
		{"malformed yaml", "store_driver: [", nil, "failed to parse"},
		{"unknown driver", "", map[string]string{"STORE_DRIVER": "mysql"}, "store_driver must be one of"},
		{"postgres without url", "store_driver: postgres", nil, "database_url is required"},
		{"bad threshold", "", map[string]string{"NOTIFY_THRESHOLD": "abc"}, "invalid NOTIFY_THRESHOLD"},
		{"threshold out of range", "notify_threshold: 150", nil, "invalid notify_threshold"},
		{"half slack config", "slack_bot_token: xoxb", nil, "must be set together"},
		{"bad schedule", `retrain_schedule: "every day"`, nil, "invalid retrain_schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			t.Setenv("CONFIG_PATH", path)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseSchedule(t *testing.T) {
	_, err := ParseSchedule("*/15 * * * *")
	assert.NoError(t, err)

	_, err = ParseSchedule("0 0 3 * * *")
	assert.Error(t, err, "seconds field is not accepted")
}

func TestLoad_ZeroNotifyThreshold(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  string
	}{
		{name: "from yaml", yaml: "notify_threshold: 0\n"},
		{name: "from env", env: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if tt.yaml != "" {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
				t.Setenv("CONFIG_PATH", path)
			}
			if tt.env != "" {
				t.Setenv("NOTIFY_THRESHOLD", tt.env)
			}

			cfg, err := Load()
			require.NoError(t, err)
			assert.Zero(t, cfg.NotifyThreshold)
		})
	}
}
