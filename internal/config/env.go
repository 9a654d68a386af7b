package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env files into the process environment.
// Missing files are not an error.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// ApplyEnv overrides file values with environment variables.
func ApplyEnv(cfg *Config) {
	if v := env("JOBCRAWL_DATA_DIR"); v != "" {
		cfg.App.DataDir = v
	}
	if v := env("JOBCRAWL_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := env("JOBCRAWL_SOURCE"); v != "" {
		cfg.Crawl.Source = v
	}
	if v := env("JOBCRAWL_STORE"); v != "" {
		cfg.Store.Driver = v
	}
	if v := env("DATABASE_URL"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := env("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.Token = v
	}
	if v := env("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Notify.ChatID = id
		}
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
