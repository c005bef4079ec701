// Package tracelog classifies single strace log lines into typed events.
//
// A line looks like:
//
//	12:00:01.000123 execve("/bin/sh", ["sh", "-c", "echo hi"], ["HOME=/root"]) = 0
//	└── timestamp ─┘└──────────────────────── rest ─────────────────────────────────┘
//
// SplitTimestamp separates the two parts; Classify inspects the rest and
// returns one of:
//
//   - KindStdout / KindStderr: write(1, ...) / write(2, ...)
//   - KindExec: execve(...) = 0 (failed execs are ignored)
//   - KindExit: exit(n), exit_group(n), "+++ exited with n +++", "+++ killed by SIG +++"
//   - KindSpawn: clone, __clone2, clone3, fork, vfork returning a child PID
//
// The checks run in that order. Anything else is KindNone.
package tracelog
