package session

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gatehouse/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
//
// It controls the cookie surface and the session lifetime. Values are
// environment-driven so deployments can tune them without code changes.
type Config struct {
	// CookieName is the session cookie name.
	CookieName string

	// CookiePath, CookieDomain, CookieSecure, CookieSameSite shape the
	// emitted Set-Cookie header.
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// SessionTTL bounds a session both client-side (cookie expiry) and
	// server-side (stored expiry); the two always move together.
	SessionTTL time.Duration

	// TokenBytes is the entropy drawn for each opaque session token.
	TokenBytes int
}

// DefaultConfig returns defaults suitable for the demo deployment.
func DefaultConfig() Config {
	return Config{
		CookieName:     "prod_session_id",
		CookiePath:     "/",
		CookieSecure:   false,
		CookieSameSite: http.SameSiteLaxMode,
		SessionTTL:     7 * 24 * time.Hour,
		TokenBytes:     token.DefaultBytes,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - GATEHOUSE_SESSION_COOKIE_NAME
//   - GATEHOUSE_SESSION_COOKIE_PATH
//   - GATEHOUSE_SESSION_COOKIE_DOMAIN
//   - GATEHOUSE_SESSION_COOKIE_SECURE   (bool)
//   - GATEHOUSE_SESSION_COOKIE_SAMESITE (lax|strict|none)
//   - GATEHOUSE_SESSION_TTL             (Go duration, > 0)
//   - GATEHOUSE_SESSION_TOKEN_BYTES     (int, >= 16)
//
// Returns ErrConfig if a set variable is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("GATEHOUSE_SESSION_COOKIE_NAME")); v != "" {
		cfg.CookieName = v
	}
	if v := strings.TrimSpace(os.Getenv("GATEHOUSE_SESSION_COOKIE_PATH")); v != "" {
		cfg.CookiePath = v
	}
	if v := strings.TrimSpace(os.Getenv("GATEHOUSE_SESSION_COOKIE_DOMAIN")); v != "" {
		cfg.CookieDomain = v
	}

	if v := strings.TrimSpace(os.Getenv("GATEHOUSE_SESSION_COOKIE_SECURE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: GATEHOUSE_SESSION_COOKIE_SECURE=%q", ErrConfig, v)
		}
		cfg.CookieSecure = b
	}

	if v := strings.TrimSpace(os.Getenv("GATEHOUSE_SESSION_COOKIE_SAMESITE")); v != "" {
		switch strings.ToLower(v) {
		case "lax":
			cfg.CookieSameSite = http.SameSiteLaxMode
		case "strict":
			cfg.CookieSameSite = http.SameSiteStrictMode
		case "none":
			cfg.CookieSameSite = http.SameSiteNoneMode
		default:
			return Config{}, fmt.Errorf("%w: GATEHOUSE_SESSION_COOKIE_SAMESITE=%q", ErrConfig, v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("GATEHOUSE_SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: GATEHOUSE_SESSION_TTL=%q", ErrConfig, v)
		}
		cfg.SessionTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("GATEHOUSE_SESSION_TOKEN_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < token.MinBytes {
			return Config{}, fmt.Errorf("%w: GATEHOUSE_SESSION_TOKEN_BYTES=%q", ErrConfig, v)
		}
		cfg.TokenBytes = n
	}

	return cfg, nil
}
