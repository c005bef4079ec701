package output

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mrzor/strace-tree/internal/tree"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// EnvDumper writes the decoded environment of each process that executed
// a program to <dir>/<pid>.envp, one variable per line.
type EnvDumper struct {
	fs  afero.Fs
	dir string
}

// NewEnvDumper creates a dumper writing under dir.
func NewEnvDumper(fs afero.Fs, dir string) *EnvDumper {
	return &EnvDumper{fs: fs, dir: dir}
}

// Dump writes one file per process reachable from the root and returns how
// many were written. Processes without an execve of their own are skipped;
// their environment is not in the trace.
func (d *EnvDumper) Dump(t *tree.Tree) (int, error) {
	if err := d.fs.MkdirAll(d.dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", d.dir, err)
	}

	written := 0
	err := t.Walk(func(n *tree.Node, _ int) error {
		envp := n.Record.Envp()
		if envp == nil {
			return nil
		}

		path := filepath.Join(d.dir, strconv.Itoa(n.PID)+".envp")
		var b strings.Builder
		for _, kv := range envp {
			b.WriteString(kv)
			b.WriteByte('\n')
		}
		if err := afero.WriteFile(d.fs, path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		written++
		return nil
	})
	if err != nil {
		return written, err
	}

	log.WithFields(log.Fields{"dir": d.dir, "files": written}).Debug("dumped environments")
	return written, nil
}
