package procmeta

import (
	"github.com/mrzor/strace-tree/internal/execargs"
)

// Edge is a process-creation event observed in a parent's log.
type Edge struct {
	Child int
	// Call is the creating syscall (clone, clone3, fork, vfork, __clone2).
	Call string
	// Timestamp of the creating line in the parent's log.
	Timestamp string
}

// Record is everything learned about one PID from its own log.
//
// Exec, ExitStatus and the timestamps are absent (nil / empty) until the
// corresponding line is seen. A record for a PID that only appears as a
// child edge has HasLog false.
type Record struct {
	PID int
	// Exec is the last successful execve of the process, nil if none.
	Exec *execargs.Exec
	// ExitStatus is nil when no exit line was seen.
	ExitStatus *int
	// Signal is the terminating signal name when the process was killed.
	Signal string

	FirstSeen string
	LastSeen  string

	WroteStdout bool
	WroteStderr bool

	// Children in the order their creation lines appear in this log.
	Children []Edge

	HasLog bool
	// UndecodedExecs counts execve lines whose arguments could not be read,
	// e.g. an environment printed as a pointer when strace ran without -v.
	UndecodedExecs int
	Issues         []string
}

// Pathname returns the executed pathname, or "" when the process never
// executed its own image.
func (r *Record) Pathname() string {
	if r.Exec == nil {
		return ""
	}
	return r.Exec.Pathname
}

// Envp returns the decoded environment vector, nil when unknown.
func (r *Record) Envp() []string {
	if r.Exec == nil {
		return nil
	}
	return r.Exec.Envp
}
