package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	for _, key := range []string{"PORT", "STORE_DRIVER", "HASH_SALT", "SESSION_SECRET", "ASYNC_CLICKS", "REDIRECT_RATE_LIMIT", "REDIRECT_RATE_WINDOW", "ALLOWED_EMAILS", "APP_ENV", "GOOGLE_CLIENT_ID"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file", cfg.StoreDriver)
	assert.Equal(t, "supersecret", cfg.HashSalt)
	assert.True(t, cfg.AsyncClicks)
	assert.Equal(t, 60, cfg.RedirectRateLimit)
	assert.Equal(t, time.Minute, cfg.RedirectRateWindow)
	assert.Empty(t, cfg.AllowedEmails)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.GoogleEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("HASH_SALT", "")
	t.Setenv("SESSION_SECRET", "from-session")
	t.Setenv("ASYNC_CLICKS", "false")
	t.Setenv("REDIRECT_RATE_LIMIT", "5")
	t.Setenv("REDIRECT_RATE_WINDOW", "10s")
	t.Setenv("CLICK_QUEUE_SIZE", "not-a-number")
	t.Setenv("ALLOWED_EMAILS", " Me@Example.com, ,you@example.com ")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "from-session", cfg.HashSalt)
	assert.False(t, cfg.AsyncClicks)
	assert.Equal(t, 5, cfg.RedirectRateLimit)
	assert.Equal(t, 10*time.Second, cfg.RedirectRateWindow)
	assert.Equal(t, 1024, cfg.ClickQueueSize)
	assert.Equal(t, []string{"me@example.com", "you@example.com"}, cfg.AllowedEmails)
	assert.True(t, cfg.IsProduction())
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger("debug", format)
		assert.NoError(t, err)
		assert.True(t, logger.Core().Enabled(-1), format) // debug
	}
	logger, err := NewLogger("bogus", "json")
	assert.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
}
