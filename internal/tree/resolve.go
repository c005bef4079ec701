package tree

// Resolution is how a process is displayed.
type Resolution struct {
	Pathname string
	Argv     []string
	// Inherited is set when Pathname and Argv come from an ancestor.
	Inherited bool
	// From is the PID whose execve is displayed.
	From int
	// Placeholder is set when no real execve is available: the process is,
	// or descends without execve from, an attached root.
	Placeholder bool
}

// Resolve returns the pathname and argv displayed for pid: its own execve
// when it has one, otherwise the nearest ancestor's. The walk is iterative
// and bounded by the number of nodes.
func (t *Tree) Resolve(pid int) (Resolution, bool) {
	n, ok := t.Nodes[pid]
	if !ok {
		return Resolution{}, false
	}

	if exec := n.Record.Exec; exec != nil {
		return Resolution{Pathname: exec.Pathname, Argv: exec.Argv, From: pid}, true
	}
	if n == t.Root {
		return Resolution{Placeholder: true, From: pid}, true
	}

	steps := 0
	for a := n.Parent; a != nil && steps < len(t.Nodes); a = a.Parent {
		steps++
		if exec := a.Record.Exec; exec != nil {
			return Resolution{Pathname: exec.Pathname, Argv: exec.Argv, Inherited: true, From: a.PID}, true
		}
		if a == t.Root {
			return Resolution{Inherited: true, Placeholder: true, From: a.PID}, true
		}
	}

	// Cycle or detached chain: nothing to inherit from.
	return Resolution{Inherited: true, Placeholder: true}, true
}
