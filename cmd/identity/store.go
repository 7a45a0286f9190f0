package identity

import (
	"context"
	"time"
)

// User is Gatehouse's security principal: a single row in the users table.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	DisplayName  string

	// SessionToken is the opaque token of the user's active session, nil when
	// logged out. SessionExpiresAt bounds its validity server-side.
	SessionToken     *string
	SessionExpiresAt *time.Time

	CreatedAt time.Time
}

// CreateUserInput describes a user creation request.
type CreateUserInput struct {
	Username    string
	Password    string
	DisplayName string
	Now         time.Time
}

// Store is the credential persistence boundary.
//
// Implementations must make SetSessionToken an atomic single-row overwrite:
// concurrent logins for the same user serialize to last-writer-wins, leaving
// exactly one valid token.
type Store interface {
	// FindByUsername looks a user up by exact, case-sensitive username.
	// Returns ErrNotFound when absent.
	FindByUsername(ctx context.Context, username string) (User, error)

	// FindByToken looks a user up by exact session token match. Tokens whose
	// stored expiry is not after now read as absent. Returns ErrNotFound when
	// no live token matches.
	FindByToken(ctx context.Context, token string, now time.Time) (User, error)

	// SetSessionToken overwrites the stored session token for a user.
	// A nil token clears the session (logout). expiresAt must be non-nil
	// exactly when token is.
	SetSessionToken(ctx context.Context, userID string, token *string, expiresAt *time.Time) error

	// CreateUser creates a new user; the password is hashed before storage.
	// Returns a ConflictError when the username is taken.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// EnsureSeedUser creates the given account if and only if it is absent.
	// It is safe to call on every startup.
	EnsureSeedUser(ctx context.Context, username, password, displayName string) error
}
