// Package catalog stores the shops ("stores") and the priced items they
// carry.
//
// [Repository] is implemented by [MemoryRepository] and
// [PostgresRepository]. Store names are unique. Every item references an
// existing store and deleting a store deletes its items. Put operations
// upsert by ID: an existing store is renamed, an existing item gets a new
// name and price but keeps its store.
package catalog
