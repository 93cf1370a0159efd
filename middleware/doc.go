// Package middleware exposes the HTTP adapter for the authorization gate.
//
// [Guard] reads the Authorization header, calls Engine.Authorize, and injects
// the admitted [storeauth.Principal] into the request context, where
// [PrincipalFromContext] retrieves it.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the revocation registry (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Authorize.
package middleware
