package app

import (
	"errors"

	"gatehouse/cmd/internal/auth/session"
	"gatehouse/cmd/security/token"
)

// ValidateSecurityConfig enforces Gatehouse's security policy at startup.
// Fail-fast beats silently running with a weakened session surface.
func ValidateSecurityConfig(cfg Config, sessCfg session.Config) error {
	if cfg.RequireSecureCookies && !sessCfg.CookieSecure {
		return errors.New("security policy: GATEHOUSE_REQUIRE_SECURE_COOKIES=true but GATEHOUSE_SESSION_COOKIE_SECURE is not set")
	}

	if sessCfg.TokenBytes < token.MinBytes {
		return errors.New("security policy: session token entropy below minimum")
	}

	if cfg.SeedPassword == "" {
		return errors.New("security policy: seed password must not be empty")
	}

	return nil
}
