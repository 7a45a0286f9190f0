package identity

import (
	"gatehouse/cmd/security/password"
)

// identity delegates password hashing to cmd/security/password as the single
// source of truth, so store implementations and the session broker cannot
// drift to different cost settings.

// HashPassword returns a bcrypt hash of plain using the configured cost.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// FromEnv only fails on a malformed env override; fall back to the
		// default cost rather than refusing to serve.
		cfg = password.DefaultConfig()
	}
	return cfg.Hash(plain)
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
// Mismatch and malformed hash are indistinguishable to the caller.
func VerifyPassword(plain, hash string) bool {
	return password.DefaultConfig().Verify(plain, hash)
}
