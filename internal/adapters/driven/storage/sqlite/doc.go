// Package sqlite provides the SQLite-backed task queue.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. The queue lives in its own environment under the data directory:
//
//	<data dir>/tasks/tasks.db
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Task IDs
//
// Task IDs come from an AUTOINCREMENT primary key. SQLite allocates the ID
// inside the inserting statement and records the high-water mark in
// sqlite_sequence in the same commit. An ID that was never committed was
// never visible to a reader; a committed ID is never handed out again, even
// after its row is deleted.
//
// # Thread Safety
//
// All operations are thread-safe. Every write is a single statement, so the
// store relies on SQLite's WAL-mode locking alone: one writer at a time,
// readers on their own snapshot.
package sqlite
