// Package tree reconstructs the process tree from scanned records and
// resolves the program each process is displayed as.
//
// Build links every record to the parent whose log recorded its creation and
// identifies the single root: the scanned PID that no edge points to. A root
// without an execve means strace attached to a running process.
//
// Resolve implements inheritance: a process that never executed its own
// image is displayed with the pathname and argv of its nearest ancestor that
// did. Records are never modified by Resolve.
package tree
