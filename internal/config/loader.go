// Package config reads the service configuration from STUDENTSTAY_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "STUDENTSTAY_"

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	SessionTTL         time.Duration
	SessionPolicy      string
	MaxSessionsPerUser int
	MaxLoginAttempts   int
	LockoutWindow      time.Duration
	LoginRateLimit     float64
	LoginRateBurst     int
	CookieSecure       bool
	Timezone           *time.Location
	LogLevel           string
}

// Defaults returns the configuration used when no variable is set.
func Defaults() Config {
	return Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:studentstay.db",
		SessionTTL:         7 * 24 * time.Hour,
		SessionPolicy:      "single",
		MaxSessionsPerUser: 5,
		MaxLoginAttempts:   5,
		LockoutWindow:      15 * time.Minute,
		LoginRateLimit:     10,
		LoginRateBurst:     5,
		CookieSecure:       true,
		Timezone:           time.UTC,
		LogLevel:           "info",
	}
}

// LoadDotenv loads variables from the given files (".env" when none is given)
// without overriding the process environment. Missing files are ignored.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom parses configuration using getenv for lookups. Every invalid variable
// is reported in one error.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	p := parser{getenv: getenv}

	p.positiveInt("HTTP_PORT", &cfg.HTTPPort)
	p.str("SQLITE_DSN", &cfg.SQLiteDSN)
	p.duration("SESSION_TTL", &cfg.SessionTTL)
	p.oneOf("SESSION_POLICY", &cfg.SessionPolicy, "single", "multiple")
	p.positiveInt("MAX_SESSIONS_PER_USER", &cfg.MaxSessionsPerUser)
	p.positiveInt("MAX_LOGIN_ATTEMPTS", &cfg.MaxLoginAttempts)
	p.duration("LOCKOUT_WINDOW", &cfg.LockoutWindow)
	p.positiveFloat("LOGIN_RATE_LIMIT", &cfg.LoginRateLimit)
	p.positiveInt("LOGIN_RATE_BURST", &cfg.LoginRateBurst)
	p.boolean("COOKIE_SECURE", &cfg.CookieSecure)
	p.location("TIMEZONE", &cfg.Timezone)
	p.oneOf("LOG_LEVEL", &cfg.LogLevel, "debug", "info", "warn", "error")

	if cfg.HTTPPort > 65535 {
		p.invalid = append(p.invalid, envPrefix+"HTTP_PORT")
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, ", "))
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

type parser struct {
	getenv  func(string) string
	invalid []string
}

func (p *parser) lookup(key string) (string, bool) {
	value := strings.TrimSpace(p.getenv(envPrefix + key))
	return value, value != ""
}

func (p *parser) fail(key string) {
	p.invalid = append(p.invalid, envPrefix+key)
}

func (p *parser) str(key string, dst *string) {
	if value, ok := p.lookup(key); ok {
		*dst = value
	}
}

func (p *parser) positiveInt(key string, dst *int) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		p.fail(key)
		return
	}
	*dst = n
}

func (p *parser) positiveFloat(key string, dst *float64) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		p.fail(key)
		return
	}
	*dst = f
}

func (p *parser) duration(key string, dst *time.Duration) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		p.fail(key)
		return
	}
	*dst = d
}

func (p *parser) boolean(key string, dst *bool) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key)
		return
	}
	*dst = b
}

func (p *parser) oneOf(key string, dst *string, allowed ...string) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	value = strings.ToLower(value)
	for _, candidate := range allowed {
		if value == candidate {
			*dst = value
			return
		}
	}
	p.fail(key)
}

func (p *parser) location(key string, dst **time.Location) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		p.fail(key)
		return
	}
	*dst = loc
}
