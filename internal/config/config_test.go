package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("QUEUE_REFRESH_INTERVAL", "")
	t.Setenv("SESSION_BACKEND", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sql", cfg.SessionBackend)
	assert.Equal(t, 30*time.Second, cfg.QueueRefreshInterval)
	assert.True(t, cfg.DemoLogin)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("QUEUE_REFRESH_INTERVAL", "5s")
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-duration")
	t.Setenv("DEMO_LOGIN", "false")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.QueueRefreshInterval)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.False(t, cfg.DemoLogin)
}
