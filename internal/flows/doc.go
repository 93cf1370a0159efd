// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunAuthorize, RunLogout) accepts
// a typed dependency struct and returns results without side-effects beyond
// those dependencies. Metric IDs, audit event names and sentinel errors are
// injected by the root package so this package never imports it.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential store, password hasher,
// token manager, revocation registry, rate limiter, audit and metrics. They
// do NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import storeauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
