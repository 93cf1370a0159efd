// Package jwt issues and verifies HS256 session tokens.
//
// Every token carries sub, jti (a random UUID), iat and exp. Verify returns a
// [Result] tagged with [StatusValid], [StatusInvalid] or [StatusExpired]
// instead of an error, so callers can map each outcome to a distinct
// rejection without inspecting error strings.
package jwt
