package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in dev mode (no database configured)
// and in unit tests. All methods are safe for concurrent use; users are
// returned by value so callers cannot mutate stored rows.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*User
	order []string
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*User)}
}

// FindByUsername looks a user up by exact, case-sensitive username.
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (User, error) {
	const op = "identity.FindByUsername"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if u := s.byID[id]; u != nil && u.Username == username {
			return cloneUser(u), nil
		}
	}
	return User{}, NotFoundError{Op: op, Resource: "user"}
}

// FindByToken looks a user up by exact live session token match.
func (s *MemoryStore) FindByToken(ctx context.Context, token string, now time.Time) (User, error) {
	const op = "identity.FindByToken"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if token == "" {
		return User{}, NotFoundError{Op: op, Resource: "session"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		u := s.byID[id]
		if u == nil || u.SessionToken == nil || *u.SessionToken != token {
			continue
		}
		if u.SessionExpiresAt == nil || !u.SessionExpiresAt.After(now) {
			break
		}
		return cloneUser(u), nil
	}
	return User{}, NotFoundError{Op: op, Resource: "session"}
}

// SetSessionToken overwrites the stored session token under the store lock.
func (s *MemoryStore) SetSessionToken(ctx context.Context, userID string, token *string, expiresAt *time.Time) error {
	const op = "identity.SetSessionToken"

	if err := ctx.Err(); err != nil {
		return err
	}
	if userID == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty user id"}
	}
	if (token == nil) != (expiresAt == nil) {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "token and expiry must be set together"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}

	u.SessionToken = clonePtr(token)
	u.SessionExpiresAt = clonePtr(expiresAt)
	return nil
}

// CreateUser creates a new user with a hashed password.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username is required"}
	}
	if in.Password == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}
	id, err := NewID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.Username == username {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
	}

	u := &User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		CreatedAt:    now,
	}
	s.byID[id] = u
	s.order = append(s.order, id)

	return cloneUser(u), nil
}

// EnsureSeedUser creates the account if absent.
func (s *MemoryStore) EnsureSeedUser(ctx context.Context, username, password, displayName string) error {
	_, err := s.CreateUser(ctx, CreateUserInput{
		Username:    username,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil && !IsConflict(err) {
		return err
	}
	return nil
}

func cloneUser(u *User) User {
	cp := *u
	cp.SessionToken = clonePtr(u.SessionToken)
	cp.SessionExpiresAt = clonePtr(u.SessionExpiresAt)
	return cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
