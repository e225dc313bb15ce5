// Package config provides configuration helpers for sentrycam commands.
// All knobs are environment variables with defaults; a .env file in the
// working directory is loaded first so SMTP secrets stay out of the shell.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default pipeline configuration.
const (
	DefaultMonitorPort  = "8089"
	DefaultAlertPort    = "3000"
	DefaultCooldown     = 60 * time.Second
	DefaultCaptureSecs  = 10
	DefaultScoreThresh  = 0.3
	DefaultMinKeypoints = 1
)

// LoadDotEnv loads a .env file if one exists. Missing files are fine;
// a malformed file is reported so a bad deployment fails loudly.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

// String returns the env var or the fallback if unset or empty.
func String(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Int returns the env var parsed as int, or the fallback.
func Int(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Float returns the env var parsed as float64, or the fallback.
func Float(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Duration returns the env var parsed as a Go duration ("90s", "2m"),
// or the fallback.
func Duration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// SMTP holds mail transport settings for the alert server.
type SMTP struct {
	Host      string
	Port      int
	User      string
	Pass      string
	From      string
	Recipient string
}

// LoadSMTP reads SMTP settings from the environment.
func LoadSMTP() SMTP {
	return SMTP{
		Host:      String("SMTP_HOST", "send.one.com"),
		Port:      Int("SMTP_PORT", 465),
		User:      String("SMTP_USER", ""),
		Pass:      String("SMTP_PASS", ""),
		From:      String("ALERT_FROM", String("SMTP_USER", "")),
		Recipient: String("ALERT_RECIPIENT", ""),
	}
}
