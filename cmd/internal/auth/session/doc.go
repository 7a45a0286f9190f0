// Package session implements Gatehouse's session broker.
//
// Login verifies credentials against the identity store, issues an opaque
// token, persists it on the user row, and mirrors it into a browser cookie.
// Each page load revalidates the cookie against the store once and restores
// the authenticated flag on the request-scoped State.
//
// The token is stored as-is and compared by equality, matching the
// find-by-token contract of the credential store. Hashing tokens at rest is
// the known hardening path; it changes the lookup contract and is not done
// here.
//
// All validation is fail-closed: a store fault during restore reads as an
// unknown token and leaves the caller anonymous.
package session
