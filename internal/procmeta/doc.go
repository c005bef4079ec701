// Package procmeta holds per-process records reconstructed from trace logs.
//
// Record is the scanned state of one PID: its execve (if any), exit status,
// first/last seen timestamps, output flags and the child edges observed in
// its own log, in log order.
//
// Table is the global process table filled by the scan phase:
//
// Queries (read-only):
//   - Get(pid) - Retrieve a record
//   - PIDs() - All PIDs, ascending
//   - Len() - Number of records
//
// Commands (mutations):
//   - Put(record) - Insert a scanned record (once per PID)
//   - GetOrCreate(pid) - Fetch a record, adding an empty one for a PID without a log
//
// Thread-safe with RWMutex so scanners running in parallel can insert
// disjoint PIDs concurrently.
//
// ProcessMetadata is the expression-evaluation view of a record
// (environment map, argv, full command line).
package procmeta
