package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL         string
	DataDir            string
	HTTPTimeoutSeconds int
	Environment        string
}

// Load reads configuration from .env (when present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; env vars alone are enough for a CLI.
	_ = godotenv.Load()

	dataDir := getEnv("FLASHDECK_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(home, ".flashdeck")
	}

	return &Config{
		APIBaseURL:         getEnv("FLASHDECK_API_URL", "http://localhost:8000"),
		DataDir:            dataDir,
		HTTPTimeoutSeconds: getEnvInt("FLASHDECK_HTTP_TIMEOUT_SECONDS", 30),
		Environment:        getEnv("ENVIRONMENT", "development"),
	}, nil
}

// IsDevelopment reports whether the development environment is configured.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
