// Package internal holds the packages that are private to storeauth.
//
// # Sub-packages
//
//   - dbx: database/sql helpers shared by the PostgreSQL stores
//   - flows: function-typed orchestrators for register, login, authorize and logout
//   - httpapi: JSON/HTTP surface over the engine and the catalog
//   - migrations: embedded goose migrations
//   - rate: Redis-backed login throttling counters
//
// # What this package must NOT do
//
//   - Export types that appear in the public storeauth API.
package internal
