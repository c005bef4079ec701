package tree

import (
	"fmt"
	"sort"

	"github.com/mrzor/strace-tree/internal/procmeta"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
)

// RootCall is the creating call shown for a root that executed its program.
const RootCall = "execve"

// Node is a process in the reconstructed tree.
type Node struct {
	PID    int
	Record *procmeta.Record
	Parent *Node
	// Call is the syscall that created this process, RootCall for a root
	// with an execve, and "" for an attached root.
	Call string
	// Children in the order their creation lines appear in this node's log.
	Children []*Node
}

// Tree is the reconstructed process tree.
type Tree struct {
	Root  *Node
	Nodes map[int]*Node
	// Attached is set when the root never executed a program in the trace,
	// i.e. strace attached to an already running process.
	Attached bool
	// RootExecUndecoded is set instead of Attached when the root did call
	// execve but its arguments could not be decoded.
	RootExecUndecoded bool
	// Unreachable lists PIDs that have a parent but cannot be reached from
	// the root.
	Unreachable []int
	Warnings    []string
}

// edgeRef locates an edge inside its parent's log.
type edgeRef struct {
	parent int
	index  int
	edge   procmeta.Edge
}

// before orders competing creation edges for the same child: earliest
// timestamp first, then lower parent PID, then log order.
func (a edgeRef) before(b edgeRef) bool {
	if a.edge.Timestamp != b.edge.Timestamp {
		return a.edge.Timestamp < b.edge.Timestamp
	}
	if a.parent != b.parent {
		return a.parent < b.parent
	}
	return a.index < b.index
}

// Build links the records of tbl into a tree.
//
// Child PIDs without a log of their own get an empty record in tbl. When a
// PID is created by more than one edge (PID reuse, malformed traces) the
// earliest edge wins and the others are dropped with a warning.
func Build(tbl *procmeta.Table) (*Tree, error) {
	scanned := tbl.PIDs()
	if len(scanned) == 0 {
		return nil, newAmbiguousRootError(nil)
	}

	winners := make(map[int]edgeRef)
	children := mapset.NewThreadUnsafeSet[int]()
	for _, pid := range scanned {
		for i, edge := range tbl.Get(pid).Children {
			ref := edgeRef{parent: pid, index: i, edge: edge}
			children.Add(edge.Child)
			if cur, ok := winners[edge.Child]; !ok || ref.before(cur) {
				winners[edge.Child] = ref
			}
		}
	}

	roots := mapset.NewThreadUnsafeSet(scanned...).Difference(children)
	if roots.Cardinality() != 1 {
		return nil, newAmbiguousRootError(roots.ToSlice())
	}
	rootPID, _ := roots.Pop()

	t := &Tree{Nodes: make(map[int]*Node, len(scanned))}
	for _, pid := range scanned {
		t.Nodes[pid] = &Node{PID: pid, Record: tbl.Get(pid)}
	}

	orphans := children.Difference(mapset.NewThreadUnsafeSet(scanned...)).ToSlice()
	sort.Ints(orphans)
	for _, pid := range orphans {
		t.warn(pid, fmt.Sprintf("pid %d was created by pid %d but has no log", pid, winners[pid].parent))
		t.Nodes[pid] = &Node{PID: pid, Record: tbl.GetOrCreate(pid)}
	}

	for _, pid := range scanned {
		parent := t.Nodes[pid]
		for i, edge := range parent.Record.Children {
			win := winners[edge.Child]
			if win.parent != pid || win.index != i {
				t.warn(edge.Child, fmt.Sprintf("pid %d also created by pid %d at %s (%s); keeping pid %d at %s",
					edge.Child, pid, edge.Timestamp, edge.Call, win.parent, win.edge.Timestamp))
				continue
			}
			child := t.Nodes[edge.Child]
			child.Parent = parent
			child.Call = edge.Call
			parent.Children = append(parent.Children, child)
		}
	}

	t.Root = t.Nodes[rootPID]
	switch {
	case t.Root.Record.Exec != nil:
		t.Root.Call = RootCall
	case t.Root.Record.UndecodedExecs > 0:
		t.RootExecUndecoded = true
	default:
		t.Attached = true
	}

	t.checkReachability()

	return t, nil
}

// checkReachability records nodes that the traversal from the root never
// visits. Only possible with cyclic edges among non-root PIDs.
func (t *Tree) checkReachability() {
	seen := make(map[int]bool, len(t.Nodes))
	_ = t.Walk(func(n *Node, _ int) error {
		seen[n.PID] = true
		return nil
	})
	if len(seen) == len(t.Nodes) {
		return
	}

	for pid := range t.Nodes {
		if !seen[pid] {
			t.Unreachable = append(t.Unreachable, pid)
		}
	}
	sort.Ints(t.Unreachable)
	for _, pid := range t.Unreachable {
		t.warn(pid, fmt.Sprintf("pid %d is not reachable from root pid %d", pid, t.Root.PID))
	}
}

func (t *Tree) warn(pid int, msg string) {
	t.Warnings = append(t.Warnings, msg)
	log.WithField("pid", pid).Warn(msg)
}

// Walk visits the tree depth-first in pre-order, children in log order,
// calling fn with each node and its depth (root is 0). It stops at the
// first error returned by fn.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	type frame struct {
		node  *Node
		depth int
	}

	stack := []frame{{t.Root, 0}}
	seen := make(map[*Node]bool, len(t.Nodes))
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[f.node] {
			continue
		}
		seen[f.node] = true

		if err := fn(f.node, f.depth); err != nil {
			return err
		}

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
	return nil
}
