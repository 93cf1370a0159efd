// Package revocation tracks logged-out session tokens by their jti.
//
// Three backends implement [Registry]: [Memory] for a single process,
// [Redis] for a shared denylist, and [Postgres] for durable storage.
// All backend failures wrap [ErrUnavailable].
//
// Entries are kept forever unless eviction is requested. [Memory] and
// [Postgres] implement [Sweeper] and are swept by the Engine's janitor when
// configured; [Redis] evicts through key TTLs when [Options.EvictExpired] is
// set. An entry is only evicted after its token's own expiry, so eviction
// never re-admits a token that would still verify.
package revocation
