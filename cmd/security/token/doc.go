// Package token issues opaque session tokens for Gatehouse.
//
// Tokens are random base64url strings with no decodable structure; they are
// used purely as lookup keys against the credential store. The default size
// is 32 bytes of entropy, well past the 128-bit floor where collisions stop
// being a practical concern.
package token
