package token

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	// DefaultBytes is the entropy drawn for a token when the caller does not
	// specify a size.
	DefaultBytes = 32

	// MinBytes is the smallest entropy NewN will accept; 16 bytes keeps every
	// issued token in the 128-bit class.
	MinBytes = 16
)

// New returns a fresh opaque token with the default entropy.
func New() (string, error) {
	return NewN(DefaultBytes)
}

// NewN returns a fresh opaque token drawn from nBytes of crypto/rand entropy.
// Sizes below MinBytes are raised to the default rather than rejected.
func NewN(nBytes int) (string, error) {
	if nBytes < MinBytes {
		nBytes = DefaultBytes
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	// URL-safe, no padding: the token travels in a cookie value.
	return base64.RawURLEncoding.EncodeToString(b), nil
}
