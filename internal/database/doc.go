// Package database provides SQLite-based post history for boardwatch.
//
// This package implements the BoardDB, which stores:
//   - Every post ever extracted, keyed by its content ID, with the time it
//     was first and last seen
//   - One record per fetch with its status and counters
//
// The database is a single file opened with modernc.org/sqlite, a CGO-free
// driver, in WAL mode.
package database
