package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mrzor/strace-tree/internal/eventprocessor"
	"github.com/mrzor/strace-tree/internal/procmeta"
	"github.com/mrzor/strace-tree/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

// build scans the given logs (pid -> lines) and assembles the report.
func build(t *testing.T, opts Options, logs map[int][]string) []Row {
	t.Helper()

	tbl := procmeta.NewTable()
	for pid, lines := range logs {
		result, err := eventprocessor.ScanReader(context.Background(), pid, strings.NewReader(strings.Join(lines, "\n")))
		require.NoError(t, err)
		require.NoError(t, tbl.Put(result.Record))
	}

	tr, err := tree.Build(tbl)
	require.NoError(t, err)

	rows, err := Assemble(tr, opts)
	require.NoError(t, err)
	return rows
}

func TestAssemble_SingleExecNoExit(t *testing.T) {
	rows := build(t, Options{}, map[int][]string{
		7: {`10:00:00.000001 execve("/bin/true", ["true"], []) = 0`},
	})

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "output.7", row.Log)
	assert.Equal(t, "/bin/true", row.PathnameCell())
	assert.NotContains(t, row.PathnameCell(), Unknown)
	assert.False(t, row.Inherited)
	assert.Nil(t, row.ExitStatus)
	assert.Equal(t, Unknown, row.ExitCell())
	assert.Equal(t, "execve", row.CallCell())
	assert.Equal(t, Unknown, row.PPIDCell())
	assert.Equal(t, "true", row.IndentedArgvCell())
}

func TestAssemble_ForkedChildInheritsCommand(t *testing.T) {
	rows := build(t, Options{Prefix: "trace"}, map[int][]string{
		100: {
			`10:00:00.000001 execve("/bin/sh", ["/bin/sh", "-c", "echo hi"], ["HOME=/root"]) = 0`,
			`10:00:00.000002 clone(child_stack=NULL, flags=CLONE_CHILD_CLEARTID|SIGCHLD, child_tidptr=0x7f) = 101`,
			`10:00:00.000005 exit_group(0) = ?`,
		},
		101: {
			`10:00:00.000003 write(1, "hi\n", 3) = 3`,
			`10:00:00.000004 exit_group(0) = ?`,
		},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, 100, rows[0].PID)

	child := rows[1]
	assert.Equal(t, "trace.101", child.Log)
	assert.Equal(t, "clone", child.CallCell())
	assert.Equal(t, "100", child.PPIDCell())
	assert.True(t, child.Inherited)
	assert.Equal(t, 100, child.ResolvedFrom)
	assert.Equal(t, "/bin/sh "+InheritedMark, child.PathnameCell())
	assert.Equal(t, `    /bin/sh -c echo hi `+InheritedMark, child.IndentedArgvCell())
	assert.True(t, child.Stdout)
	assert.False(t, child.Stderr)
	assert.Equal(t, "out    ", child.OutputCell())
	require.NotNil(t, child.ExitStatus)
	assert.Equal(t, 0, *child.ExitStatus)
	assert.False(t, child.Failed())
	assert.Equal(t, "10:00:00.000003", child.FirstSeen)
	assert.Equal(t, "10:00:00.000004", child.LastSeen)
}

func TestAssemble_ChildOrderFromParentLog(t *testing.T) {
	rows := build(t, Options{}, map[int][]string{
		1: {
			`1 execve("/bin/sh", ["sh"], []) = 0`,
			`2 fork() = 3`,
			`3 fork() = 2`,
		},
		2: {`4 exit_group(0) = ?`},
		3: {`5 exit_group(0) = ?`},
	})

	var pids []int
	for _, r := range rows {
		pids = append(pids, r.PID)
	}
	assert.Equal(t, []int{1, 3, 2}, pids)
}

func TestAssemble_AttachedRoot(t *testing.T) {
	rows := build(t, Options{}, map[int][]string{
		900: {
			`1 read(0, "", 4096) = 0`,
			`2 clone(child_stack=NULL, flags=SIGCHLD) = 901`,
			`3 +++ killed by SIGTERM +++`,
		},
		901: {
			`4 write(2, "x", 1) = 1`,
			`5 exit_group(2) = ?`,
		},
	})

	require.Len(t, rows, 2)
	root := rows[0]
	assert.Equal(t, Unknown, root.CallCell())
	assert.Equal(t, Unknown, root.PPIDCell())
	assert.Equal(t, AttachedPlaceholder, root.PathnameCell())
	assert.Equal(t, AttachedPlaceholder, root.ArgvCell())
	assert.Equal(t, "SIGTERM", root.ExitCell())
	assert.True(t, root.Failed())

	child := rows[1]
	assert.Equal(t, AttachedPlaceholder+" "+InheritedMark, child.PathnameCell())
	assert.Equal(t, "2", child.ExitCell())
	assert.True(t, child.Failed())
	assert.Equal(t, "    err", child.OutputCell())
}

func TestAssemble_OrphanRendersUnknowns(t *testing.T) {
	rows := build(t, Options{}, map[int][]string{
		1: {
			`1 execve("/bin/sh", ["sh"], []) = 0`,
			`2 vfork() = 44`,
		},
	})

	require.Len(t, rows, 2)
	orphan := rows[1]
	assert.False(t, orphan.HasLog)
	assert.Equal(t, []string{
		"output.44", "vfork", Unknown, Unknown, "1", "/bin/sh !", "       ", Unknown, "    sh !",
	}, orphan.Cells(nil))
}

func TestAssemble_Depth(t *testing.T) {
	rows := build(t, Options{}, map[int][]string{
		1: {`1 execve("/bin/a", ["a"], []) = 0`, `2 fork() = 2`},
		2: {`3 execve("/bin/b", ["b"], []) = 0`, `4 fork() = 3`},
		3: {`5 execve("/bin/c", ["c", "x"], []) = 0`},
	})

	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[2].Depth)
	assert.Equal(t, "        c x", rows[2].IndentedArgvCell())
	assert.Equal(t, "/bin/c", rows[2].PathnameCell())
}

type fakeEvaluator struct {
	seen []*procmeta.ProcessMetadata
	err  error
}

func (f *fakeEvaluator) EvaluateCustomAttributes(m *procmeta.ProcessMetadata) ([]attribute.KeyValue, error) {
	f.seen = append(f.seen, m)
	if f.err != nil {
		return nil, f.err
	}
	return []attribute.KeyValue{attribute.String("home", m.Environ["HOME"])}, nil
}

func TestAssemble_CustomAttributesUseResolvedEnvironment(t *testing.T) {
	eval := &fakeEvaluator{}
	rows := build(t, Options{Evaluator: eval}, map[int][]string{
		1: {`1 execve("/bin/sh", ["sh"], ["HOME=/root"]) = 0`, `2 fork() = 2`},
		2: {`3 exit_group(0) = ?`},
	})

	require.Len(t, eval.seen, 2)
	assert.Equal(t, "/bin/sh", eval.seen[1].Pathname)
	assert.Equal(t, []string{"home"}, CustomColumns(rows))
	assert.Equal(t, "/root", rows[1].CustomValue("home"))
	assert.Equal(t, "/root", rows[1].Cells(CustomColumns(rows))[len(Headers)])
	assert.Equal(t, "", rows[1].CustomValue("missing"))
}

func TestAssemble_EvaluatorError(t *testing.T) {
	tbl := procmeta.NewTable()
	require.NoError(t, tbl.Put(&procmeta.Record{PID: 1, HasLog: true}))
	tr, err := tree.Build(tbl)
	require.NoError(t, err)

	_, err = Assemble(tr, Options{Evaluator: &fakeEvaluator{err: errors.New("bad expr")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pid 1")
}

func TestRow_Cells(t *testing.T) {
	status := 1
	ppid := 10
	row := Row{
		Log:        "output.11",
		Call:       "clone3",
		FirstSeen:  "a",
		LastSeen:   "b",
		PPID:       &ppid,
		Pathname:   "/usr/bin/env",
		Argv:       []string{"env"},
		Stdout:     true,
		Stderr:     true,
		ExitStatus: &status,
		Depth:      1,
	}

	assert.Equal(t, []string{"output.11", "clone3", "a", "b", "10", "/usr/bin/env", "out err", "1", "    env"}, row.Cells(nil))
	assert.Len(t, Headers, len(row.Cells(nil)))
	assert.True(t, row.Failed())
}

func TestCustomColumns_Declared(t *testing.T) {
	rows := []Row{
		{Custom: []attribute.KeyValue{
			attribute.String("extra", "x"),
			attribute.String("env.HOME", "/root"),
			attribute.String("env.PATH", "/bin"),
		}},
		{Custom: []attribute.KeyValue{attribute.String("env.USER", "me")}},
	}

	assert.Equal(t, []string{"extra", "env.HOME", "env.PATH", "env.USER"}, CustomColumns(rows))
	assert.Equal(t,
		[]string{"broken", "env.HOME", "env.PATH", "env.USER", "extra"},
		CustomColumns(rows, "broken", "env"),
		"a declared name with no values keeps its column; a map name becomes its keys")
	assert.Equal(t, []string{"broken"}, CustomColumns(nil, "broken"))
}

func TestRow_FailedOnlyOnKnownFailure(t *testing.T) {
	zero, one := 0, 1
	assert.False(t, (&Row{}).Failed(), "unknown exit is not a failure")
	assert.False(t, (&Row{ExitStatus: &zero}).Failed())
	assert.True(t, (&Row{ExitStatus: &one}).Failed())
	assert.True(t, (&Row{Signal: "SIGKILL"}).Failed())
}
