package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	if v := GetEnvTrimmed(key); v != "" {
		return v
	}

	return defaultValue
}

// GetEnvBool returns defaultValue when key is unset or not a valid bool.
func GetEnvBool(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(GetEnvTrimmed(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetEnvPositiveInt returns defaultValue unless key holds an integer > 0.
func GetEnvPositiveInt(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(GetEnvTrimmed(key))
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func GetEnvPositiveInt64(key string, defaultValue int64) int64 {
	parsed, err := strconv.ParseInt(GetEnvTrimmed(key), 10, 64)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// GetEnvDuration accepts Go duration strings such as "30s" or "24h".
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(GetEnvTrimmed(key))
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// GetEnvList splits a comma-separated value and drops empty items.
func GetEnvList(key string) []string {
	raw := GetEnvTrimmed(key)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}
