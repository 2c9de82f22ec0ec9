// Package logs reads back the JSON log files written under the log directory.
//
// It locates the newest daily file, filters records by run id, level, or
// event type, and tails with bounded memory. Follow mode polls for appended
// lines until the caller's context ends, which is how `skupix logs -f`
// watches a fetch running in another terminal.
package logs
