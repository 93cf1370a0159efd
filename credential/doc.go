// Package credential stores user identities and their password digests.
//
// [MemoryStore] serves tests and single-process deployments. [PostgresStore]
// uses the users table created by the embedded migrations and maps the
// unique-violation SQLSTATE to [ErrDuplicateKey].
package credential
