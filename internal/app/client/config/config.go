package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	envcfg "possync/internal/config"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultConfigDir     = ".possync"
	defaultDataFile      = "offline.db"
)

type Config struct {
	Env           string
	ServerAddress string
	EnableTLS     bool
	APIToken      string
	ConfigDir     string
	DataPath      string

	SyncInterval  time.Duration
	ProbeInterval time.Duration
	MaxAttempts   int
	BackoffMin    time.Duration
	BackoffMax    time.Duration

	// OfflinePassphrase включает шифрование содержимого очереди на диске
	OfflinePassphrase string
	// BackgroundSync - false означает платформу без фоновой синхронизации
	BackgroundSync bool
}

// MustLoad загружает конфигурацию клиента и паникует при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	envcfg.LoadDotEnv(".env", "../.env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", envcfg.EnvLocal)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	v.SetDefault("PROBE_INTERVAL_SECONDS", 10)
	v.SetDefault("SYNC_MAX_ATTEMPTS", 10)
	v.SetDefault("SYNC_BACKOFF_MIN_SECONDS", 5)
	v.SetDefault("SYNC_BACKOFF_MAX_SECONDS", 1800)
	v.SetDefault("BACKGROUND_SYNC", true)

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		configDir = filepath.Join(homeDir, configDir)
	}

	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, defaultDataFile)
	}

	cfg := &Config{
		Env:               v.GetString("APP_ENV"),
		ServerAddress:     v.GetString("SERVER_ADDRESS"),
		EnableTLS:         v.GetBool("ENABLE_TLS"),
		APIToken:          v.GetString("API_TOKEN"),
		ConfigDir:         configDir,
		DataPath:          dataPath,
		SyncInterval:      seconds(v.GetInt("SYNC_INTERVAL_SECONDS")),
		ProbeInterval:     seconds(v.GetInt("PROBE_INTERVAL_SECONDS")),
		MaxAttempts:       v.GetInt("SYNC_MAX_ATTEMPTS"),
		BackoffMin:        seconds(v.GetInt("SYNC_BACKOFF_MIN_SECONDS")),
		BackoffMax:        seconds(v.GetInt("SYNC_BACKOFF_MAX_SECONDS")),
		OfflinePassphrase: v.GetString("OFFLINE_PASSPHRASE"),
		BackgroundSync:    v.GetBool("BACKGROUND_SYNC"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.DataPath == "" {
		return fmt.Errorf("data_path не может быть пустым")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("sync_max_attempts не может быть отрицательным")
	}
	if c.BackoffMax > 0 && c.BackoffMin > c.BackoffMax {
		return fmt.Errorf("sync_backoff_min_seconds больше sync_backoff_max_seconds")
	}
	return nil
}

// BaseURL возвращает адрес сервера со схемой
func (c *Config) BaseURL() string {
	scheme := "http://"
	if c.EnableTLS {
		scheme = "https://"
	}
	return scheme + c.ServerAddress
}

func (c *Config) IsProd() bool {
	return c.Env == envcfg.EnvProd
}

func (c *Config) IsLocal() bool {
	return c.Env == envcfg.EnvLocal || c.Env == ""
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
