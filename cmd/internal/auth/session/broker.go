package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gatehouse/cmd/identity"
	"gatehouse/cmd/security/token"
)

// Broker orchestrates the session lifecycle: login, cookie revalidation on
// page load, and logout.
type Broker struct {
	cfg   Config
	log   *slog.Logger
	store identity.Store

	metrics *Metrics

	// dummyHash makes unknown-user logins cost one bcrypt verification, the
	// same as a wrong password, so the two failure paths stay
	// indistinguishable in timing as well as in error surface.
	dummyHash string
}

// BrokerOption configures optional broker dependencies.
type BrokerOption func(*Broker)

// WithMetrics attaches Prometheus collectors to the broker.
func WithMetrics(m *Metrics) BrokerOption {
	return func(b *Broker) {
		if b == nil || m == nil {
			return
		}
		b.metrics = m
	}
}

// NewBroker constructs a Broker over the given credential store.
func NewBroker(log *slog.Logger, store identity.Store, cfg Config, opts ...BrokerOption) *Broker {
	if log == nil {
		log = slog.Default()
	}

	b := &Broker{
		cfg:   cfg,
		log:   log,
		store: store,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(b)
	}

	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		b.dummyHash = hash
	}

	return b
}

// Authenticate verifies the submitted credentials and, on success, issues a
// new session: token persisted on the user row, mirrored into the response
// cookie, and reflected in the request State.
//
// Failure modes:
//   - unknown user or wrong password: ErrInvalidCredentials, identical for
//     both, caller stays anonymous
//   - store write failure after successful verification: ErrTokenPersistence,
//     caller stays anonymous
func (b *Broker) Authenticate(ctx context.Context, w http.ResponseWriter, st *State, username, password string) error {
	username = strings.TrimSpace(username)

	user, err := b.store.FindByUsername(ctx, username)
	if err != nil {
		if !identity.IsNotFound(err) {
			// Fail closed: a faulting store reads as an unknown user.
			b.log.Error("session.login.lookup.fail", "err", err)
		}
		if b.dummyHash != "" {
			identity.VerifyPassword(password, b.dummyHash)
		}
		b.metrics.loginResult("invalid_credentials")
		return ErrInvalidCredentials
	}

	if !identity.VerifyPassword(password, user.PasswordHash) {
		b.metrics.loginResult("invalid_credentials")
		return ErrInvalidCredentials
	}

	tok, err := token.NewN(b.cfg.TokenBytes)
	if err != nil {
		b.log.Error("session.login.token.fail", "err", err)
		b.metrics.loginResult("persistence_error")
		return ErrTokenPersistence
	}

	now := time.Now().UTC()
	exp := now.Add(b.cfg.SessionTTL)

	// A new login overwrites any prior token, invalidating that session.
	if err := b.store.SetSessionToken(ctx, user.ID, &tok, &exp); err != nil {
		b.log.Error("session.login.persist.fail", "err", err, "user_id", user.ID)
		b.metrics.loginResult("persistence_error")
		return ErrTokenPersistence
	}

	b.setSessionCookie(w, tok, exp)
	st.set(user)
	st.checked = true

	b.metrics.loginResult("success")
	b.log.Info("session.login.success", "user_id", user.ID, "username", user.Username)
	return nil
}

// Restore revalidates the inbound cookie token once per request cycle.
//
// If the State is already authenticated or was already checked this cycle,
// Restore returns without a store lookup. Otherwise it reads the cookie,
// matches the token against the store, and either restores the authenticated
// flag or expires the cookie. Restore never surfaces an error: any fault or
// mismatch leaves the caller anonymous.
func (b *Broker) Restore(ctx context.Context, w http.ResponseWriter, r *http.Request, st *State) {
	if st.Authenticated || st.checked {
		return
	}
	st.checked = true

	tok, ok := b.tokenFromCookie(r)
	if !ok {
		return
	}

	user, err := b.store.FindByToken(ctx, tok, time.Now().UTC())
	if err != nil {
		if !identity.IsNotFound(err) {
			b.log.Error("session.restore.lookup.fail", "err", err)
		}
		// Unknown, expired, or unreadable: discard the cookie.
		b.expireSessionCookie(w)
		b.metrics.restoreResult("miss")
		return
	}

	st.set(user)
	b.metrics.restoreResult("hit")
}

// Logout clears the stored session token, expires the cookie, and resets the
// State. It is a no-op server-side for anonymous callers but still clears the
// cookie. The State must have been restored first so the broker knows which
// user row to clear.
func (b *Broker) Logout(ctx context.Context, w http.ResponseWriter, st *State) error {
	defer func() {
		b.expireSessionCookie(w)
		st.clear()
		st.checked = true
	}()

	if !st.Authenticated {
		return nil
	}

	if err := b.store.SetSessionToken(ctx, st.UserID, nil, nil); err != nil {
		b.log.Error("session.logout.clear.fail", "err", err, "user_id", st.UserID)
		return err
	}

	b.log.Info("session.logout", "user_id", st.UserID)
	return nil
}
