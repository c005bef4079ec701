// Package timesync converts strace line timestamps to wall-clock time.
//
// strace prints one of three forms depending on how it was invoked:
// -t gives HH:MM:SS, -tt adds microseconds and -ttt prints seconds since
// the epoch. The clock forms carry no date, so a Converter anchors them to
// an instant known to follow the trace (typically the log's modification
// time) and picks the latest matching instant not after it.
package timesync
