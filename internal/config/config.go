package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config keeps runtime settings for the tracker daemon.
type Config struct {
	DatabaseURL    string
	Location       *time.Location
	FinalizeAt     string
	StatsAt        string
	DigestAt       string
	TelegramToken  string
	TelegramChatID int64
	MetricsAddr    string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		FinalizeAt:    strings.TrimSpace(os.Getenv("FINALIZE_AT")),
		StatsAt:       strings.TrimSpace(os.Getenv("STATS_AT")),
		DigestAt:      strings.TrimSpace(os.Getenv("DIGEST_AT")),
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		MetricsAddr:   strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "tracker.db"
	}
	if cfg.FinalizeAt == "" {
		cfg.FinalizeAt = "02:00"
	}
	if cfg.StatsAt == "" {
		cfg.StatsAt = "03:00"
	}

	tz := strings.TrimSpace(os.Getenv("TIMEZONE"))
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = chatID
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return cfg, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if cfg.DigestAt != "" && cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("DIGEST_AT needs TELEGRAM_TOKEN")
	}

	return cfg, nil
}

// Today returns the current calendar date in the configured timezone.
func (c Config) Today(now time.Time) time.Time {
	y, m, d := now.In(c.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
