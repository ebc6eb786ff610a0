package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
	assert.Equal(t, 600*time.Second, cfg.SessionTTL)
	assert.NotEmpty(t, cfg.PaymentAddress)
	assert.NotEmpty(t, cfg.WebsiteURL)
}

func TestEnabledHelpers(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.BotEnabled())
	assert.False(t, cfg.SheetsEnabled())
	assert.False(t, cfg.AdminEnabled())

	cfg.BotToken = "12345:ABC"
	cfg.SheetsWebhook = "https://script.google.com/macros/s/x/exec"
	cfg.AdminID = 42
	assert.True(t, cfg.BotEnabled())
	assert.True(t, cfg.SheetsEnabled())
	assert.True(t, cfg.AdminEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:XYZ")
	t.Setenv("ADMIN_ID", "777")
	t.Setenv("PORT", "9090")
	t.Setenv("POLL_TIMEOUT", "10s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "999:XYZ", cfg.BotToken)
	assert.Equal(t, int64(777), cfg.AdminID)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.PollTimeout)
}

func TestKeepAliveURL(t *testing.T) {
	cfg := &Config{HTTPPort: 8080}
	assert.Equal(t, "http://localhost:8080/ping", cfg.KeepAliveURL())

	cfg.PublicDomain = "bot.example.app"
	assert.Equal(t, "https://bot.example.app/ping", cfg.KeepAliveURL())
}
