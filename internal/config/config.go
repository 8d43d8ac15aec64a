// Package config loads process configuration into an explicit struct.
//
// Everything the services need — secrets, token lifetimes, SMTP settings —
// is read ONCE here and passed down by value. No service reads os.Getenv
// at runtime; if it isn't in the Config struct, it doesn't exist. That keeps
// the services pure and trivially testable (construct a Config literal, done).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default token and activation lifetimes. Overridable via environment,
// expressed in seconds to match what clients see in the "expires" field.
const (
	DefaultAccessTokenLifetime  = 600 * time.Second    // 10 minutes
	DefaultRefreshTokenLifetime = 604800 * time.Second // 1 week
	DefaultActivationLifetime   = 86400 * time.Second  // 1 day
)

// Config holds all process configuration.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs every session token. Must be at least 16 characters;
	// generate with `openssl rand -hex 32`.
	JWTSecret string

	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
	ActivationLifetime   time.Duration

	// BaseURL is the externally visible address of this server, used to
	// build activation links in outgoing mail.
	BaseURL string

	// SMTP settings for activation mail. When SMTPHost is empty the server
	// falls back to logging outgoing mail instead of delivering it.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// GoogleClientID is the OAuth client the google_connect endpoint
	// accepts ID tokens for. Facebook needs no server-side credential —
	// the client hands us a user access token and we call the Graph API
	// with it directly.
	GoogleClientID string
}

// Load builds a Config from the environment, reading a .env file first if
// one is present (missing .env is not an error — production sets real
// environment variables).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 8080,
		DBPath:               "data/notes.db",
		AccessTokenLifetime:  DefaultAccessTokenLifetime,
		RefreshTokenLifetime: DefaultRefreshTokenLifetime,
		ActivationLifetime:   DefaultActivationLifetime,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}

	var err error
	if cfg.AccessTokenLifetime, err = secondsEnv("ACCESS_TOKEN_LIFETIME", cfg.AccessTokenLifetime); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenLifetime, err = secondsEnv("REFRESH_TOKEN_LIFETIME", cfg.RefreshTokenLifetime); err != nil {
		return nil, err
	}
	if cfg.ActivationLifetime, err = secondsEnv("ACTIVATION_CODE_LIFETIME", cfg.ActivationLifetime); err != nil {
		return nil, err
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SMTP_PORT %q: %w", v, err)
		}
		cfg.SMTPPort = port
	} else {
		cfg.SMTPPort = 587
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.MailFrom = os.Getenv("MAIL_FROM")
	if cfg.MailFrom == "" {
		cfg.MailFrom = "no-reply@localhost"
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")

	return cfg, nil
}

// secondsEnv reads an integer-seconds environment variable into a Duration,
// keeping the fallback when the variable is unset.
func secondsEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive number of seconds, got %q", name, v)
	}
	return time.Duration(secs) * time.Second, nil
}
