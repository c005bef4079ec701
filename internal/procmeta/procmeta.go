package procmeta

import (
	"strings"
)

// ProcessMetadata holds structured process information for expression evaluation.
type ProcessMetadata struct {
	Environ     map[string]string // Parsed environment variables
	Args        []string          // Command-line arguments
	CmdlineFull string            // Full command line as single string
	Pathname    string            // Executed program
}

// NewProcessMetadata builds the evaluation view of a process from its
// displayed pathname and argv and its own environment.
func NewProcessMetadata(pathname string, argv, envp []string) *ProcessMetadata {
	args, cmdline := parseCmdline(argv)
	return &ProcessMetadata{
		Environ:     parseEnviron(envp),
		Args:        args,
		CmdlineFull: cmdline,
		Pathname:    pathname,
	}
}

// parseEnviron converts KEY=VALUE strings into a map.
// Entries without '=' or with an empty key are skipped; the last duplicate wins.
func parseEnviron(raw []string) map[string]string {
	env := make(map[string]string, len(raw))
	for _, entry := range raw {
		idx := strings.IndexByte(entry, '=')
		if idx <= 0 {
			continue
		}
		env[entry[:idx]] = entry[idx+1:]
	}
	return env
}

// parseCmdline copies argv and joins it into a single command line.
func parseCmdline(raw []string) ([]string, string) {
	args := make([]string, len(raw))
	copy(args, raw)
	return args, strings.Join(args, " ")
}
