package identity

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_CreateAndFindByUsername(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewMemoryStore()

	u, err := st.CreateUser(ctx, CreateUserInput{Username: "admin", Password: "safe_pass", DisplayName: "System Administrator"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.PasswordHash == "" || u.PasswordHash == "safe_pass" {
		t.Fatalf("created user missing id or stored a plaintext password: %+v", u)
	}
	if u.SessionToken != nil {
		t.Fatalf("new user must have no session token")
	}

	got, err := st.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("FindByUsername returned wrong user: %q != %q", got.ID, u.ID)
	}

	// Exact, case-sensitive match.
	if _, err := st.FindByUsername(ctx, "Admin"); !IsNotFound(err) {
		t.Fatalf("username lookup must be case-sensitive, got err=%v", err)
	}
	if _, err := st.FindByUsername(ctx, "nouser"); !IsNotFound(err) {
		t.Fatalf("unknown username err = %v, want not found", err)
	}
}

func TestMemoryStore_DuplicateUsernameConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewMemoryStore()

	if _, err := st.CreateUser(ctx, CreateUserInput{Username: "admin", Password: "safe_pass"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := st.CreateUser(ctx, CreateUserInput{Username: "admin", Password: "other"})
	if !IsConflict(err) {
		t.Fatalf("duplicate username err = %v, want conflict", err)
	}
}

func TestMemoryStore_SessionTokenLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now().UTC()

	u, err := st.CreateUser(ctx, CreateUserInput{Username: "admin", Password: "safe_pass"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tok := "opaque-token-1"
	exp := now.Add(7 * 24 * time.Hour)
	if err := st.SetSessionToken(ctx, u.ID, &tok, &exp); err != nil {
		t.Fatalf("SetSessionToken: %v", err)
	}

	got, err := st.FindByToken(ctx, tok, now)
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got.ID != u.ID || got.SessionToken == nil || *got.SessionToken != tok {
		t.Fatalf("FindByToken returned wrong row: %+v", got)
	}

	// Overwrite invalidates the previous token.
	tok2 := "opaque-token-2"
	if err := st.SetSessionToken(ctx, u.ID, &tok2, &exp); err != nil {
		t.Fatalf("SetSessionToken(overwrite): %v", err)
	}
	if _, err := st.FindByToken(ctx, tok, now); !IsNotFound(err) {
		t.Fatalf("old token must be invalid after overwrite, err=%v", err)
	}

	// Clear on logout.
	if err := st.SetSessionToken(ctx, u.ID, nil, nil); err != nil {
		t.Fatalf("SetSessionToken(clear): %v", err)
	}
	if _, err := st.FindByToken(ctx, tok2, now); !IsNotFound(err) {
		t.Fatalf("cleared token must be invalid, err=%v", err)
	}

	got, err = st.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.SessionToken != nil || got.SessionExpiresAt != nil {
		t.Fatalf("cleared session must store nil token and expiry")
	}
}

func TestMemoryStore_ExpiredTokenReadsAsAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now().UTC()

	u, err := st.CreateUser(ctx, CreateUserInput{Username: "admin", Password: "safe_pass"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tok := "stale-token"
	exp := now.Add(-time.Minute)
	if err := st.SetSessionToken(ctx, u.ID, &tok, &exp); err != nil {
		t.Fatalf("SetSessionToken: %v", err)
	}
	if _, err := st.FindByToken(ctx, tok, now); !IsNotFound(err) {
		t.Fatalf("expired token err = %v, want not found", err)
	}
}

func TestMemoryStore_SetSessionTokenValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewMemoryStore()

	tok := "t"
	exp := time.Now().UTC().Add(time.Hour)

	if err := st.SetSessionToken(ctx, "missing", &tok, &exp); !IsNotFound(err) {
		t.Fatalf("unknown user err = %v, want not found", err)
	}

	u, err := st.CreateUser(ctx, CreateUserInput{Username: "admin", Password: "safe_pass"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := st.SetSessionToken(ctx, u.ID, &tok, nil); !IsInvalidInput(err) {
		t.Fatalf("token without expiry err = %v, want invalid input", err)
	}
	if err := st.SetSessionToken(ctx, u.ID, nil, &exp); !IsInvalidInput(err) {
		t.Fatalf("expiry without token err = %v, want invalid input", err)
	}
}

func TestMemoryStore_ConcurrentLoginsLastWriterWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now().UTC()
	exp := now.Add(time.Hour)

	u, err := st.CreateUser(ctx, CreateUserInput{Username: "admin", Password: "safe_pass"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tokens := []string{"token-a", "token-b"}
	var wg sync.WaitGroup
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			if err := st.SetSessionToken(ctx, u.ID, &tok, &exp); err != nil {
				t.Errorf("SetSessionToken(%s): %v", tok, err)
			}
		}(tok)
	}
	wg.Wait()

	// Exactly one of the two tokens is valid at the end.
	valid := 0
	for _, tok := range tokens {
		if _, err := st.FindByToken(ctx, tok, now); err == nil {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("valid tokens after concurrent logins = %d, want exactly 1", valid)
	}
}

func TestMemoryStore_EnsureSeedUserIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewMemoryStore()

	if err := st.EnsureSeedUser(ctx, "admin", "safe_pass", "System Administrator"); err != nil {
		t.Fatalf("EnsureSeedUser: %v", err)
	}
	first, err := st.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}

	if err := st.EnsureSeedUser(ctx, "admin", "different_pass", "Other"); err != nil {
		t.Fatalf("EnsureSeedUser(second): %v", err)
	}
	second, err := st.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if second.ID != first.ID || second.PasswordHash != first.PasswordHash {
		t.Fatalf("seed must not overwrite an existing account")
	}
}
