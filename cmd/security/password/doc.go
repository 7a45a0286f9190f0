// Package password provides password hashing and verification for Gatehouse.
//
// It wraps bcrypt behind a small Config surface:
// - Each Hash call draws a fresh random salt (bcrypt does this internally).
// - Verify uses bcrypt's constant-effort comparison and fails closed on
//   malformed hashes.
// - Cost is tunable via GATEHOUSE_BCRYPT_COST and clamped to bcrypt's
//   supported range.
//
// No length or complexity policy is enforced here; that is a known follow-up
// for a hardened deployment, not current behavior.
package password
