package config

import (
	"os"
	"strconv"
	"time"

	"github.com/adgrid/signage/internal/log"
	"github.com/rs/zerolog"
)

// ParseString reads a string from an environment variable or returns the default.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists && value != "" {
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
		return value
	}
	logger.Debug().
		Str("key", key).
		Str("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer from an environment variable or returns the default.
// It validates the input and falls back to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			logInvalidEnv(logger, key, v, defaultValue)
			return defaultValue
		}
		logger.Debug().
			Str("key", key).
			Int("value", parsed).
			Str("source", "environment").
			Msg("using environment variable")
		return parsed
	}
	logger.Debug().
		Str("key", key).
		Int("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

// ParseBool reads a boolean from an environment variable or returns the default.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			logInvalidEnv(logger, key, v, defaultValue)
			return defaultValue
		}
		logger.Debug().
			Str("key", key).
			Bool("value", parsed).
			Str("source", "environment").
			Msg("using environment variable")
		return parsed
	}
	logger.Debug().
		Str("key", key).
		Bool("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

// ParseDuration reads a duration ("10s", "2m") from an environment variable or
// returns the default. Invalid values fall back to the default.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			logInvalidEnv(logger, key, v, defaultValue)
			return defaultValue
		}
		logger.Debug().
			Str("key", key).
			Dur("value", parsed).
			Str("source", "environment").
			Msg("using environment variable")
		return parsed
	}
	logger.Debug().
		Str("key", key).
		Dur("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

func logInvalidEnv(logger zerolog.Logger, key, raw string, fallback any) {
	logger.Warn().
		Str("key", key).
		Str("value", raw).
		Interface("fallback", fallback).
		Msg("invalid environment value, using default")
}
