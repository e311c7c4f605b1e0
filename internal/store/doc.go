// Package store is the SQLite trace log of action records and faults.
//
// The log is append-only and purely diagnostic: the engine never reads it
// back for matching. A Recorder attached to the engine as an observer writes
// every record and fault of every cascade.
//
// Ordering uses the logical sequence number, never wall time. Reads return
// records ORDER BY seq ASC, id ASC so that two reads of the same log are
// identical.
//
// Database configuration:
//   - WAL mode for concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
package store
