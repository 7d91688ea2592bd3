// Package util holds small helpers shared by the entrypoint and services.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv reads a boolean environment variable. Recognized spellings are
// 1/t/true/yes/on and 0/f/false/no/off, case-insensitive; anything else keeps
// the fallback and logs the rejected value.
func ParseBoolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	}
	slog.Warn("ParseBoolEnv: unrecognized value, keeping fallback", "key", key, "value", raw, "fallback", fallback)
	return fallback
}

// GetEnvWithDefault returns the value of the environment variable or the
// default when unset or empty.
func GetEnvWithDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
