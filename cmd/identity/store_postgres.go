package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - The schema identifier is validated and quoted to keep identifier
//   interpolation safe.
// - SetSessionToken is a single UPDATE, so concurrent logins for one user
//   serialize on the row and resolve last-writer-wins.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "gatehouse").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with default settings.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "gatehouse",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) usersTable() string {
	return fmt.Sprintf("%q.users", s.schema)
}

const userColumns = "id, username, password_hash, display_name, session_token, session_expires_at, created_at"

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.DisplayName,
		&u.SessionToken,
		&u.SessionExpiresAt,
		&u.CreatedAt,
	)
	return u, err
}

// FindByUsername looks a user up by exact, case-sensitive username.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (User, error) {
	const op = "identity.FindByUsername"

	if username == "" {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	q := fmt.Sprintf(`SELECT %s FROM %s WHERE username = $1`, userColumns, s.usersTable())

	u, err := scanUser(s.pool.QueryRow(ctx, q, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindByToken looks a user up by exact session token match. Expired tokens
// read as absent, same as unknown ones.
func (s *PostgresStore) FindByToken(ctx context.Context, token string, now time.Time) (User, error) {
	const op = "identity.FindByToken"

	if token == "" {
		return User{}, NotFoundError{Op: op, Resource: "session"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	q := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE session_token = $1
		  AND session_expires_at IS NOT NULL
		  AND session_expires_at > $2
	`, userColumns, s.usersTable())

	u, err := scanUser(s.pool.QueryRow(ctx, q, token, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "session"}
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SetSessionToken atomically overwrites the stored session token for a user.
func (s *PostgresStore) SetSessionToken(ctx context.Context, userID string, token *string, expiresAt *time.Time) error {
	const op = "identity.SetSessionToken"

	if userID == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty user id"}
	}
	if (token == nil) != (expiresAt == nil) {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "token and expiry must be set together"}
	}

	q := fmt.Sprintf(`
		UPDATE %s
		SET session_token = $2, session_expires_at = $3
		WHERE id = $1
	`, s.usersTable())

	tag, err := s.pool.Exec(ctx, q, userID, token, expiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			// The partial unique index on session_token tripped: another user
			// already holds this token. Practically unreachable with 256-bit
			// tokens, but surfaced as a conflict rather than swallowed.
			return ConflictError{Op: op, Field: "session_token"}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// CreateUser creates a new user row with a hashed password.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

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
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (id, username, password_hash, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.usersTable())

	if _, err := s.pool.Exec(ctx, q, id, username, hash, strings.TrimSpace(in.DisplayName), now); err != nil {
		if isUniqueViolation(err) {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	return User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		CreatedAt:    now,
	}, nil
}

// EnsureSeedUser creates the account if absent. ON CONFLICT DO NOTHING makes
// it race-safe across concurrently starting replicas.
func (s *PostgresStore) EnsureSeedUser(ctx context.Context, username, password, displayName string) error {
	const op = "identity.EnsureSeedUser"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "username and password are required"}
	}

	// Skip the hash work when the row already exists; startup runs this on
	// every boot.
	if _, err := s.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	id, err := NewID(now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (id, username, password_hash, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING
	`, s.usersTable())

	if _, err := s.pool.Exec(ctx, q, id, username, hash, strings.TrimSpace(displayName), now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
