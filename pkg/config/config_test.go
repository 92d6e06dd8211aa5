package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, time.Hour, cfg.Slots.DefaultDuration)
	assert.Equal(t, time.Hour, cfg.Slots.DefaultStep)
	assert.Equal(t, 744*time.Hour, cfg.Slots.MaxWindow)
	assert.Equal(t, 50*time.Minute, cfg.Booking.DefaultDuration)
	assert.Equal(t, 10*time.Second, cfg.Booking.LockTTL)
	assert.Equal(t, 2*time.Second, cfg.Calendar.Timeout)
	assert.False(t, cfg.Calendar.Strict)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SLOTS_DEFAULT_STEP", "30")
	t.Setenv("CALENDAR_STRICT", "true")
	t.Setenv("CALENDAR_BASE_URL", "http://calendar.local/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CALENDAR_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Slots.DefaultStep)
	assert.True(t, cfg.Calendar.Strict)
	assert.Equal(t, "http://calendar.local", cfg.Calendar.BaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Calendar.Timeout)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
