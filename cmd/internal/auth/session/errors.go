package session

import "errors"

var (
	// ErrInvalidCredentials is returned for a bad username OR a bad password.
	// The two cases are deliberately merged so callers cannot probe which
	// usernames exist.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrTokenPersistence is returned when credentials verified but the new
	// session token could not be written to the store. Login is aborted and
	// the caller stays anonymous; the message is distinct from
	// ErrInvalidCredentials by design.
	ErrTokenPersistence = errors.New("could not persist session token")

	// ErrConfig is returned for invalid session configuration.
	ErrConfig = errors.New("invalid session config")
)
