// Package identity implements Gatehouse's credential store.
//
// It owns the users table: one row per account carrying the username, the
// bcrypt password hash, the display name, and the single active session
// token. A new login overwrites the stored token, so at most one browser
// session per user is ever valid.
//
// Store implementations exist for Postgres and for in-memory use (dev mode
// and unit tests).
package identity
