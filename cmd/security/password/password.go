package password

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const costEnvKey = "GATEHOUSE_BCRYPT_COST"

// ErrConfig is returned when the cost configuration is invalid.
var ErrConfig = errors.New("invalid password config")

// Config is the single configuration surface for this package.
type Config struct {
	// Cost is the bcrypt work factor.
	Cost int
}

// DefaultConfig returns the bcrypt default cost, a sane baseline for
// interactive logins.
func DefaultConfig() Config {
	return Config{Cost: bcrypt.DefaultCost}
}

// FromEnv loads Config from GATEHOUSE_BCRYPT_COST.
// An unset variable yields the default; an unparsable or out-of-range value
// is an error rather than a silent fallback to weaker hashing.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	v := strings.TrimSpace(os.Getenv(costEnvKey))
	if v == "" {
		return cfg, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s=%q", ErrConfig, costEnvKey, v)
	}
	if n < bcrypt.MinCost || n > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("%w: %s=%d out of range [%d..%d]", ErrConfig, costEnvKey, n, bcrypt.MinCost, bcrypt.MaxCost)
	}

	cfg.Cost = n
	return cfg, nil
}

// Hash returns a bcrypt hash of plain. The salt is randomized per call, so
// hashing the same password twice yields different strings.
func (c Config) Hash(plain string) (string, error) {
	cost := c.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plain matches the stored bcrypt hash.
// Mismatches and malformed hashes both read as false; callers never learn
// which one happened.
func (c Config) Verify(plain, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
}
