// Package history keeps a SQLite ledger of fetch runs and their per-row
// failures so operators can review what a past run skipped.
//
// The database lives at <log_dir>/history.db. The schema version is kept in
// PRAGMA user_version; a mismatch is reported as ErrSchemaMismatch rather
// than migrated in place.
package history
