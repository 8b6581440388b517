// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DedupStore: Content-addressed admission control
//   - DocumentStore: Document persistence
//   - ProviderStateStore: Fetch cursor persistence
//   - DeadLetterStore: Terminal failure records
//
// # Dedup Admission
//
// CheckAndInsert is implemented as a conditional insert against the
// admissions table's signature primary key. SQLite serialises writers,
// so concurrent admission of identical content from any number of
// providers results in exactly one inserted row; all other callers
// observe AlreadyExists with the winner's document ref.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.kayf/data/retriever.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
