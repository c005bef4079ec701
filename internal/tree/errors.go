package tree

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrAmbiguousRoot matches any AmbiguousRootError.
var ErrAmbiguousRoot = errors.New("ambiguous root")

// AmbiguousRootError is returned when the scanned logs do not have exactly
// one PID without a recorded parent.
type AmbiguousRootError struct {
	// Candidates are the parentless PIDs, ascending. Empty when every PID
	// has a parent.
	Candidates []int
}

func newAmbiguousRootError(candidates []int) *AmbiguousRootError {
	sorted := append([]int(nil), candidates...)
	sort.Ints(sorted)
	return &AmbiguousRootError{Candidates: sorted}
}

func (e *AmbiguousRootError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%v: every traced process has a parent (cyclic or incomplete edges)", ErrAmbiguousRoot)
	}

	pids := make([]string, len(e.Candidates))
	for i, pid := range e.Candidates {
		pids[i] = strconv.Itoa(pid)
	}
	return fmt.Sprintf("%v: expected exactly one root process, found %d: %s (were logs of several traces mixed?)",
		ErrAmbiguousRoot, len(e.Candidates), strings.Join(pids, ", "))
}

// Is reports whether target is ErrAmbiguousRoot.
func (e *AmbiguousRootError) Is(target error) bool {
	return target == ErrAmbiguousRoot
}
