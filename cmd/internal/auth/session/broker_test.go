package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gatehouse/cmd/identity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededStore(t *testing.T) *identity.MemoryStore {
	t.Helper()
	st := identity.NewMemoryStore()
	if err := st.EnsureSeedUser(context.Background(), "admin", "safe_pass", "System Administrator"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return st
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// requestWithCookie builds a page-load request carrying the given token.
func requestWithCookie(name, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

func TestAuthenticate_SeededAdminSucceeds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seededStore(t)
	b := NewBroker(testLogger(), store, DefaultConfig())

	rr := httptest.NewRecorder()
	st := &State{}
	if err := b.Authenticate(ctx, rr, st, "admin", "safe_pass"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if !st.Authenticated || st.Username != "admin" || st.DisplayName != "System Administrator" || st.UserID == "" {
		t.Fatalf("state not filled after login: %+v", st)
	}

	c := sessionCookie(t, rr, b.cfg.CookieName)
	if c == nil || c.Value == "" {
		t.Fatalf("login must set the session cookie")
	}
	if !c.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}
	if !c.Expires.After(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("cookie expiry %v is not ~7 days out", c.Expires)
	}

	// Stored token is non-null and matches the cookie value.
	u, err := store.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if u.SessionToken == nil || *u.SessionToken != c.Value {
		t.Fatalf("stored token does not mirror the cookie")
	}
	// Set-Cookie truncates the expiry to whole seconds.
	if u.SessionExpiresAt == nil || u.SessionExpiresAt.Sub(c.Expires).Abs() > time.Second {
		t.Fatalf("stored expiry %v does not mirror cookie expiry %v", u.SessionExpiresAt, c.Expires)
	}
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBroker(testLogger(), seededStore(t), DefaultConfig())

	wrongPw := b.Authenticate(ctx, httptest.NewRecorder(), &State{}, "admin", "wrong")
	unknown := b.Authenticate(ctx, httptest.NewRecorder(), &State{}, "nouser", "whatever")

	if !errors.Is(wrongPw, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", wrongPw)
	}
	if !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v, want ErrInvalidCredentials", unknown)
	}
	// Identical error surface: same value, same message.
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("error surfaces differ: %q vs %q", wrongPw, unknown)
	}
}

func TestAuthenticate_FailedLoginLeavesStateAnonymous(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBroker(testLogger(), seededStore(t), DefaultConfig())

	rr := httptest.NewRecorder()
	st := &State{}
	if err := b.Authenticate(ctx, rr, st, "admin", "wrong"); err == nil {
		t.Fatalf("expected error")
	}
	if st.Authenticated {
		t.Fatalf("failed login must not authenticate")
	}
	if c := sessionCookie(t, rr, b.cfg.CookieName); c != nil && c.Value != "" {
		t.Fatalf("failed login must not set a session cookie")
	}
}

// tokenWriteFailStore fails SetSessionToken to model a storage fault during
// login.
type tokenWriteFailStore struct {
	identity.Store
}

var errStorage = errors.New("disk on fire")

func (s tokenWriteFailStore) SetSessionToken(context.Context, string, *string, *time.Time) error {
	return errStorage
}

func TestAuthenticate_PersistenceFailureIsDistinct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBroker(testLogger(), tokenWriteFailStore{Store: seededStore(t)}, DefaultConfig())

	st := &State{}
	err := b.Authenticate(ctx, httptest.NewRecorder(), st, "admin", "safe_pass")
	if !errors.Is(err, ErrTokenPersistence) {
		t.Fatalf("err = %v, want ErrTokenPersistence", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("persistence failure must not read as invalid credentials")
	}
	if st.Authenticated {
		t.Fatalf("persistence failure must leave the caller anonymous")
	}
}

func TestRestore_ValidCookieRestoresState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBroker(testLogger(), seededStore(t), DefaultConfig())

	loginRR := httptest.NewRecorder()
	if err := b.Authenticate(ctx, loginRR, &State{}, "admin", "safe_pass"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	tok := sessionCookie(t, loginRR, b.cfg.CookieName).Value

	// Fresh cycle: new State, cookie carried by the browser.
	rr := httptest.NewRecorder()
	st := &State{}
	b.Restore(ctx, rr, requestWithCookie(b.cfg.CookieName, tok), st)

	if !st.Authenticated || st.Username != "admin" {
		t.Fatalf("restore did not authenticate: %+v", st)
	}
	if c := sessionCookie(t, rr, b.cfg.CookieName); c != nil {
		t.Fatalf("successful restore must not rewrite the cookie")
	}
}

func TestRestore_UnknownTokenClearsCookie(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBroker(testLogger(), seededStore(t), DefaultConfig())

	rr := httptest.NewRecorder()
	st := &State{}
	b.Restore(ctx, rr, requestWithCookie(b.cfg.CookieName, "no-such-token"), st)

	if st.Authenticated {
		t.Fatalf("unknown token must not authenticate")
	}
	c := sessionCookie(t, rr, b.cfg.CookieName)
	if c == nil || c.Value != "" || c.MaxAge != -1 {
		t.Fatalf("unknown token must expire the cookie, got %+v", c)
	}
}

func TestRestore_NoCookieStaysAnonymous(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), seededStore(t), DefaultConfig())

	rr := httptest.NewRecorder()
	st := &State{}
	b.Restore(context.Background(), rr, requestWithCookie(b.cfg.CookieName, ""), st)

	if st.Authenticated {
		t.Fatalf("no cookie must stay anonymous")
	}
	if c := sessionCookie(t, rr, b.cfg.CookieName); c != nil {
		t.Fatalf("no cookie present, nothing to clear")
	}
}

func TestRestore_ExpiredStoredTokenStaysAnonymous(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seededStore(t)
	b := NewBroker(testLogger(), store, DefaultConfig())

	u, err := store.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	tok := "stale-token"
	exp := time.Now().UTC().Add(-time.Minute)
	if err := store.SetSessionToken(ctx, u.ID, &tok, &exp); err != nil {
		t.Fatalf("SetSessionToken: %v", err)
	}

	st := &State{}
	b.Restore(ctx, httptest.NewRecorder(), requestWithCookie(b.cfg.CookieName, tok), st)
	if st.Authenticated {
		t.Fatalf("expired stored token must not restore a session")
	}
}

// faultyLookupStore fails FindByToken to model a store fault during restore.
type faultyLookupStore struct {
	identity.Store
}

func (s faultyLookupStore) FindByToken(context.Context, string, time.Time) (identity.User, error) {
	return identity.User{}, errStorage
}

func TestRestore_StoreFaultFailsClosed(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), faultyLookupStore{Store: seededStore(t)}, DefaultConfig())

	rr := httptest.NewRecorder()
	st := &State{}
	b.Restore(context.Background(), rr, requestWithCookie(b.cfg.CookieName, "whatever"), st)

	if st.Authenticated {
		t.Fatalf("a faulting store must never authenticate")
	}
	if c := sessionCookie(t, rr, b.cfg.CookieName); c == nil || c.MaxAge != -1 {
		t.Fatalf("store fault must discard the cookie")
	}
}

// countingStore counts FindByToken calls to assert the idempotent
// short-circuit.
type countingStore struct {
	identity.Store
	mu      sync.Mutex
	lookups int
}

func (s *countingStore) FindByToken(ctx context.Context, tok string, now time.Time) (identity.User, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()
	return s.Store.FindByToken(ctx, tok, now)
}

func TestRestore_IdempotentWithinCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	counting := &countingStore{Store: seededStore(t)}
	b := NewBroker(testLogger(), counting, DefaultConfig())

	loginRR := httptest.NewRecorder()
	if err := b.Authenticate(ctx, loginRR, &State{}, "admin", "safe_pass"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	tok := sessionCookie(t, loginRR, b.cfg.CookieName).Value

	st := &State{}
	req := requestWithCookie(b.cfg.CookieName, tok)
	b.Restore(ctx, httptest.NewRecorder(), req, st)
	if !st.Authenticated {
		t.Fatalf("first restore must authenticate")
	}

	before := st.Username
	b.Restore(ctx, httptest.NewRecorder(), req, st)
	b.Restore(ctx, httptest.NewRecorder(), req, st)

	if counting.lookups != 1 {
		t.Fatalf("store lookups = %d, want exactly 1 for repeated restores in one cycle", counting.lookups)
	}
	if !st.Authenticated || st.Username != before {
		t.Fatalf("repeat restore changed state: %+v", st)
	}

	// Anonymous outcome short-circuits too.
	anon := &State{}
	anonReq := requestWithCookie(b.cfg.CookieName, "")
	b.Restore(ctx, httptest.NewRecorder(), anonReq, anon)
	b.Restore(ctx, httptest.NewRecorder(), anonReq, anon)
	if counting.lookups != 1 {
		t.Fatalf("anonymous restore must not hit the store, lookups = %d", counting.lookups)
	}
}

func TestLogout_ClearsServerAndClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seededStore(t)
	b := NewBroker(testLogger(), store, DefaultConfig())

	loginRR := httptest.NewRecorder()
	st := &State{}
	if err := b.Authenticate(ctx, loginRR, st, "admin", "safe_pass"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	oldToken := sessionCookie(t, loginRR, b.cfg.CookieName).Value

	rr := httptest.NewRecorder()
	if err := b.Logout(ctx, rr, st); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if st.Authenticated || st.UserID != "" {
		t.Fatalf("logout must reset the state: %+v", st)
	}
	c := sessionCookie(t, rr, b.cfg.CookieName)
	if c == nil || c.Value != "" || c.MaxAge != -1 {
		t.Fatalf("logout must expire the cookie, got %+v", c)
	}
	u, err := store.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if u.SessionToken != nil {
		t.Fatalf("logout must clear the stored token")
	}

	// A page load with the pre-logout cookie does not restore the session.
	after := &State{}
	b.Restore(ctx, httptest.NewRecorder(), requestWithCookie(b.cfg.CookieName, oldToken), after)
	if after.Authenticated {
		t.Fatalf("old cookie restored a session after logout")
	}
}

func TestLogout_AnonymousIsNoop(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), seededStore(t), DefaultConfig())

	rr := httptest.NewRecorder()
	st := &State{}
	if err := b.Logout(context.Background(), rr, st); err != nil {
		t.Fatalf("Logout(anonymous): %v", err)
	}
	if c := sessionCookie(t, rr, b.cfg.CookieName); c == nil || c.MaxAge != -1 {
		t.Fatalf("logout still clears the client cookie")
	}
}

func TestReLogin_InvalidatesPreviousToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBroker(testLogger(), seededStore(t), DefaultConfig())

	firstRR := httptest.NewRecorder()
	if err := b.Authenticate(ctx, firstRR, &State{}, "admin", "safe_pass"); err != nil {
		t.Fatalf("first login: %v", err)
	}
	firstToken := sessionCookie(t, firstRR, b.cfg.CookieName).Value

	// Second login from another browser session.
	secondRR := httptest.NewRecorder()
	if err := b.Authenticate(ctx, secondRR, &State{}, "admin", "safe_pass"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	secondToken := sessionCookie(t, secondRR, b.cfg.CookieName).Value

	if firstToken == secondToken {
		t.Fatalf("re-login must issue a fresh token")
	}

	st := &State{}
	b.Restore(ctx, httptest.NewRecorder(), requestWithCookie(b.cfg.CookieName, firstToken), st)
	if st.Authenticated {
		t.Fatalf("first token must be invalid immediately after re-login")
	}

	st = &State{}
	b.Restore(ctx, httptest.NewRecorder(), requestWithCookie(b.cfg.CookieName, secondToken), st)
	if !st.Authenticated {
		t.Fatalf("second token must restore the session")
	}
}

func TestConcurrentLogins_ExactlyOneTokenSurvives(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBroker(testLogger(), seededStore(t), DefaultConfig())

	const attempts = 2
	tokens := make([]string, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := httptest.NewRecorder()
			if err := b.Authenticate(ctx, rr, &State{}, "admin", "safe_pass"); err != nil {
				t.Errorf("concurrent login %d: %v", i, err)
				return
			}
			tokens[i] = sessionCookie(t, rr, b.cfg.CookieName).Value
		}(i)
	}
	wg.Wait()

	valid := 0
	for _, tok := range tokens {
		if tok == "" {
			t.Fatalf("a concurrent login produced no cookie")
		}
		st := &State{}
		b.Restore(ctx, httptest.NewRecorder(), requestWithCookie(b.cfg.CookieName, tok), st)
		if st.Authenticated {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("valid tokens after concurrent logins = %d, want exactly 1", valid)
	}
}
