// Package config содержит общие для клиента и сервера константы окружения.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// LoadDotEnv загружает первый найденный .env файл из списка путей.
// Возвращает путь загруженного файла или пустую строку.
func LoadDotEnv(paths ...string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			continue
		}
		return path
	}
	return ""
}
