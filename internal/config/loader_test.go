package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		cfg, err := LoadFrom(envMap(nil))
		require.NoError(t, err)

		assert.Equal(t, Defaults().HTTPPort, cfg.HTTPPort)
		assert.Equal(t, "file:studentstay.db", cfg.SQLiteDSN)
		assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
		assert.Equal(t, "single", cfg.SessionPolicy)
		assert.Equal(t, 5, cfg.MaxLoginAttempts)
		assert.Equal(t, 15*time.Minute, cfg.LockoutWindow)
		assert.True(t, cfg.CookieSecure)
		assert.Equal(t, time.UTC, cfg.Timezone)
		assert.Equal(t, ":8080", cfg.Addr())
	})

	t.Run("parses every field", func(t *testing.T) {
		cfg, err := LoadFrom(envMap(map[string]string{
			"STUDENTSTAY_HTTP_PORT":             "9090",
			"STUDENTSTAY_SQLITE_DSN":            "file:/tmp/stay.db",
			"STUDENTSTAY_SESSION_TTL":           "24h",
			"STUDENTSTAY_SESSION_POLICY":        "Multiple",
			"STUDENTSTAY_MAX_SESSIONS_PER_USER": "3",
			"STUDENTSTAY_MAX_LOGIN_ATTEMPTS":    "7",
			"STUDENTSTAY_LOCKOUT_WINDOW":        "30m",
			"STUDENTSTAY_LOGIN_RATE_LIMIT":      "2.5",
			"STUDENTSTAY_LOGIN_RATE_BURST":      "4",
			"STUDENTSTAY_COOKIE_SECURE":         "false",
			"STUDENTSTAY_TIMEZONE":              "UTC",
			"STUDENTSTAY_LOG_LEVEL":             "DEBUG",
		}))
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.HTTPPort)
		assert.Equal(t, "file:/tmp/stay.db", cfg.SQLiteDSN)
		assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
		assert.Equal(t, "multiple", cfg.SessionPolicy)
		assert.Equal(t, 3, cfg.MaxSessionsPerUser)
		assert.Equal(t, 7, cfg.MaxLoginAttempts)
		assert.Equal(t, 30*time.Minute, cfg.LockoutWindow)
		assert.Equal(t, 2.5, cfg.LoginRateLimit)
		assert.Equal(t, 4, cfg.LoginRateBurst)
		assert.False(t, cfg.CookieSecure)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		_, err := LoadFrom(envMap(map[string]string{
			"STUDENTSTAY_HTTP_PORT":      "70000",
			"STUDENTSTAY_SESSION_TTL":    "-1h",
			"STUDENTSTAY_SESSION_POLICY": "forever",
			"STUDENTSTAY_COOKIE_SECURE":  "maybe",
			"STUDENTSTAY_TIMEZONE":       "Mars/Olympus",
		}))
		require.Error(t, err)
		for _, key := range []string{"HTTP_PORT", "SESSION_TTL", "SESSION_POLICY", "COOKIE_SECURE", "TIMEZONE"} {
			assert.Contains(t, err.Error(), "STUDENTSTAY_"+key)
		}
	})
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STUDENTSTAY_HTTP_PORT=7070\nSTUDENTSTAY_MAX_LOGIN_ATTEMPTS=9\n"), 0o600))

	t.Setenv("STUDENTSTAY_HTTP_PORT", "6060")
	t.Setenv("STUDENTSTAY_MAX_LOGIN_ATTEMPTS", "")
	require.NoError(t, os.Unsetenv("STUDENTSTAY_MAX_LOGIN_ATTEMPTS"))

	require.NoError(t, LoadDotenv(path, filepath.Join(dir, "missing.env")))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.HTTPPort, "process environment wins over .env")
	assert.Equal(t, 9, cfg.MaxLoginAttempts)
}
