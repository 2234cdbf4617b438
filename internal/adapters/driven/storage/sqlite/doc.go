// Package sqlite provides SQLite-based implementations of the driven ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Two databases are kept in the data directory:
//
//   - metadata.db (Store): DocumentStore and SessionStore through a single
//     connection pool, schema managed by embedded migrations.
//   - index.db (VectorIndex): the persistent chunk embedding index. It is
//     only created by the first AddDocuments call, so its absence means no
//     index has been built yet.
//
// # Data Location
//
// By default, databases are stored in ~/.docchat/data.
//
// # Thread Safety
//
// All operations are thread-safe. The store relies on SQLite WAL mode; the
// vector index additionally serialises writers and serves reads from
// immutable snapshots.
package sqlite
