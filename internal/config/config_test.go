package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "TIMEZONE", "FINALIZE_AT", "STATS_AT", "DIGEST_AT", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "METRICS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "tracker.db", cfg.DatabaseURL)
	require.Equal(t, "02:00", cfg.FinalizeAt)
	require.Equal(t, "03:00", cfg.StatsAt)
	require.Empty(t, cfg.DigestAt)
	require.Equal(t, time.UTC, cfg.Location)
}

func TestLoadTelegramNeedsChat(t *testing.T) {
	t.Setenv("TIMEZONE", "")
	t.Setenv("DIGEST_AT", "")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	cfg, err := Load()
	require.NoError(t, err)
	require.EqualValues(t, -1001, cfg.TelegramChatID)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("DIGEST_AT", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := Load()
	require.Error(t, err)
}

func TestTodayUsesConfiguredTimezone(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("DIGEST_AT", "")
	t.Setenv("TIMEZONE", "Pacific/Auckland")
	cfg, err := Load()
	require.NoError(t, err)

	now := time.Date(2024, time.January, 10, 20, 0, 0, 0, time.UTC) // already the 11th in Auckland
	require.Equal(t, time.Date(2024, time.January, 11, 0, 0, 0, 0, time.UTC), cfg.Today(now))
}
