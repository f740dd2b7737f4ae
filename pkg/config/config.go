// Package config loads the API, dashboard and CLI settings from the
// environment and the CLI's config file.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetString returns the variable as set, including an explicit empty value.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt parses key as an integer, warning and falling back when it is malformed.
func GetInt(key string, fallback int) int {
	return lookup(key, fallback, strconv.Atoi)
}

// GetBool parses key with strconv.ParseBool.
func GetBool(key string, fallback bool) bool {
	return lookup(key, fallback, strconv.ParseBool)
}

// GetDuration accepts a Go duration ("90s", "2h") or a bare integer counted
// in unit, so existing *_SECONDS and *_MIN variables keep working. Zero and
// negative values fall back.
func GetDuration(key string, fallback, unit time.Duration) time.Duration {
	return lookup(key, fallback, func(raw string) (time.Duration, error) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			n, nerr := strconv.Atoi(raw)
			if nerr != nil {
				return 0, err
			}
			d = time.Duration(n) * unit
		}
		if d <= 0 {
			return 0, errors.New("must be positive")
		}
		return d, nil
	})
}

func lookup[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return fallback
	}
	value, err := parse(raw)
	if err != nil {
		slog.Warn("invalid configuration value, using default", "key", key, "value", raw, "error", err)
		return fallback
	}
	return value
}
