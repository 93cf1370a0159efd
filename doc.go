// Package storeauth provides the authentication and authorization core of the
// store service: password hashing, credential storage, HS256 session tokens
// and a revocation registry consulted on every authorized request.
//
// An [Engine] is assembled with [Builder]:
//
//	engine, err := storeauth.New().
//		WithConfig(cfg).
//		WithLogger(logger).
//		Build()
//
// Engine methods are safe to call from multiple goroutines after Build.
//
// # Architecture boundaries
//
// storeauth is the public surface. It exposes [Engine], [Builder], [Config],
// the rejection codes returned by [Code], and value types. Orchestration of
// each operation lives in internal/flows and login throttling in
// internal/rate; neither is exported.
//
// # Failure model
//
// Authentication failures map to fixed sentinels and never leak whether a
// username exists. Backend failures are logged with the raw error and
// surface only as [ErrStorageUnavailable] or [ErrRevocationUnavailable].
// Authorize fails closed when the revocation registry cannot answer.
package storeauth
