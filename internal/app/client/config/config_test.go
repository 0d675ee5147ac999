package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("DATA_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.ServerAddress)
	assert.Equal(t, filepath.Join(dir, "offline.db"), cfg.DataPath)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 10*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.BackoffMin)
	assert.Equal(t, 30*time.Minute, cfg.BackoffMax)
	assert.True(t, cfg.BackgroundSync)
	assert.Empty(t, cfg.OfflinePassphrase)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
	assert.True(t, cfg.IsLocal())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SERVER_ADDRESS", "pos.example.com")
	t.Setenv("ENABLE_TLS", "true")
	t.Setenv("API_TOKEN", "t0ken")
	t.Setenv("DATA_PATH", "/var/lib/possync/till-3.db")
	t.Setenv("SYNC_INTERVAL_SECONDS", "60")
	t.Setenv("SYNC_MAX_ATTEMPTS", "3")
	t.Setenv("SYNC_BACKOFF_MIN_SECONDS", "1")
	t.Setenv("SYNC_BACKOFF_MAX_SECONDS", "120")
	t.Setenv("OFFLINE_PASSPHRASE", "till-3")
	t.Setenv("BACKGROUND_SYNC", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "https://pos.example.com", cfg.BaseURL())
	assert.Equal(t, "t0ken", cfg.APIToken)
	assert.Equal(t, "/var/lib/possync/till-3.db", cfg.DataPath)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.BackoffMin)
	assert.Equal(t, 2*time.Minute, cfg.BackoffMax)
	assert.Equal(t, "till-3", cfg.OfflinePassphrase)
	assert.False(t, cfg.BackgroundSync)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{ServerAddress: "localhost:8080", DataPath: "x.db", BackoffMin: time.Second, BackoffMax: time.Minute}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty server", mutate: func(c *Config) { c.ServerAddress = "" }, wantErr: true},
		{name: "empty data path", mutate: func(c *Config) { c.DataPath = "" }, wantErr: true},
		{name: "negative attempts", mutate: func(c *Config) { c.MaxAttempts = -1 }, wantErr: true},
		{name: "min above max", mutate: func(c *Config) { c.BackoffMin = time.Hour }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if tt.wantErr {
				assert.Error(t, c.Validate())
			} else {
				assert.NoError(t, c.Validate())
			}
		})
	}
}
