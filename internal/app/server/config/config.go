package config

import (
	"fmt"

	"github.com/spf13/viper"

	envcfg "possync/internal/config"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultMigrations = "file://migrations"
)

type Config struct {
	Env    string
	DB     db
	Server server
}

type db struct {
	DatabaseURI string
	Migrations  string
}

type server struct {
	RunAddress string
	// APIToken - общий токен касс, пустой отключает проверку
	APIToken string
	// SeedPath - JSON со справочниками для начальной загрузки
	SeedPath string
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

func Load() (*Config, error) {
	envcfg.LoadDotEnv(".env", "../../.env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", envcfg.EnvLocal)
	v.SetDefault("RUN_ADDRESS", defaultRunAddress)
	v.SetDefault("MIGRATIONS_PATH", defaultMigrations)

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		DB: db{
			DatabaseURI: v.GetString("DATABASE_URI"),
			Migrations:  v.GetString("MIGRATIONS_PATH"),
		},
		Server: server{
			RunAddress: v.GetString("RUN_ADDRESS"),
			APIToken:   v.GetString("API_TOKEN"),
			SeedPath:   v.GetString("SEED_PATH"),
		},
	}

	if cfg.DB.DatabaseURI == "" {
		return nil, fmt.Errorf("DATABASE_URI не задан")
	}
	if cfg.Server.RunAddress == "" {
		return nil, fmt.Errorf("RUN_ADDRESS не может быть пустым")
	}

	return cfg, nil
}
