package tracelog

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies what a trace line denotes.
type Kind int

// Event kinds, in classification priority order.
const (
	KindNone Kind = iota
	KindStdout
	KindStderr
	KindExec
	KindExit
	KindSpawn
)

func (k Kind) String() string {
	switch k {
	case KindStdout:
		return "stdout"
	case KindStderr:
		return "stderr"
	case KindExec:
		return "exec"
	case KindExit:
		return "exit"
	case KindSpawn:
		return "spawn"
	default:
		return "none"
	}
}

// Event is a classified trace line.
type Event struct {
	Kind Kind
	// Payload is the raw execve argument text for KindExec.
	Payload string
	// Status is the exit status for KindExit when Signal is empty.
	Status int
	// Signal is set for KindExit when the process was killed by a signal.
	Signal string
	// Call and Child are set for KindSpawn.
	Call  string
	Child int
}

var (
	// The payload match is greedy so that ") = 0" inside an argument string
	// does not end it early.
	execRe     = regexp.MustCompile(`^execve\((.*)\) = 0(?:\s+<[0-9.]+>)?\s*$`)
	exitCallRe = regexp.MustCompile(`^(?:exit|exit_group)\((-?\d+)\)`)
	exitedRe   = regexp.MustCompile(`^\+\+\+ exited with (-?\d+) \+\+\+`)
	killedRe   = regexp.MustCompile(`^\+\+\+ killed by (SIG[A-Z0-9]+)`)
	spawnRe    = regexp.MustCompile(`^(clone|__clone2|clone3|fork|vfork)\(.*\) = (\d+)(?:\s+<[0-9.]+>)?\s*$`)
	resumedRe  = regexp.MustCompile(`^<\.\.\. (clone|__clone2|clone3|fork|vfork) resumed>.*\) = (\d+)(?:\s+<[0-9.]+>)?\s*$`)
)

// SplitTimestamp splits a raw log line into its leading timestamp token and
// the remainder. The remainder is empty when the line holds only a timestamp.
// ok is false for blank lines.
func SplitTimestamp(line string) (timestamp, rest string, ok bool) {
	line = strings.TrimLeft(line, " \t")
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", "", false
	}

	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, "", true
	}

	return line[:idx], strings.TrimLeft(line[idx:], " \t"), true
}

// Classify determines the event denoted by a trace line whose timestamp has
// already been removed.
func Classify(rest string) Event {
	if strings.HasPrefix(rest, "write(1,") {
		return Event{Kind: KindStdout}
	}
	if strings.HasPrefix(rest, "write(2,") {
		return Event{Kind: KindStderr}
	}

	if m := execRe.FindStringSubmatch(rest); m != nil {
		return Event{Kind: KindExec, Payload: m[1]}
	}

	if ev, ok := classifyExit(rest); ok {
		return ev
	}

	m := spawnRe.FindStringSubmatch(rest)
	if m == nil {
		m = resumedRe.FindStringSubmatch(rest)
	}
	if m != nil {
		child, err := strconv.Atoi(m[2])
		if err == nil {
			return Event{Kind: KindSpawn, Call: m[1], Child: child}
		}
	}

	return Event{Kind: KindNone}
}

func classifyExit(rest string) (Event, bool) {
	m := exitCallRe.FindStringSubmatch(rest)
	if m == nil {
		m = exitedRe.FindStringSubmatch(rest)
	}
	if m != nil {
		status, err := strconv.Atoi(m[1])
		if err != nil {
			return Event{}, false
		}
		return Event{Kind: KindExit, Status: status}, true
	}

	if m := killedRe.FindStringSubmatch(rest); m != nil {
		return Event{Kind: KindExit, Signal: m[1]}, true
	}

	return Event{}, false
}
