package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kennelworks/kennel-api/internal/log"
)

const AppEnvKey = "APP_ENV"

var devLikeEnvs = map[string]struct{}{
	"":            {},
	"dev":         {},
	"development": {},
	"local":       {},
	"test":        {},
	"testing":     {},
}

func InitializeEnvFile(logger *log.Logger) {
	if os.Getenv("SKIP_DOTENV") == "true" {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err.Error())
		return
	}

	logger.Info("Environment variables loaded from .env file")
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func GetAppEnv() string {
	return normalizeEnv(os.Getenv(AppEnvKey))
}

func normalizeEnv(appEnv string) string {
	return strings.ToLower(strings.TrimSpace(appEnv))
}

// IsDevLikeEnv reports whether appEnv is unset or names a local/test environment.
func IsDevLikeEnv(appEnv string) bool {
	_, ok := devLikeEnvs[normalizeEnv(appEnv)]
	return ok
}

func IsProductionEnv(appEnv string) bool {
	env := normalizeEnv(appEnv)
	return env == "production" || env == "prod"
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	if IsDevLikeEnv(appEnv) {
		return nil
	}
	return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: \"\", dev, development, local, test, testing)", AppEnvKey, normalizeEnv(appEnv))
}
