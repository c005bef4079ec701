package attributes

import (
	"fmt"

	"github.com/mrzor/strace-tree/internal/procmeta"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// typeEnv is the environment expressions are type-checked against.
func typeEnv() map[string]interface{} {
	return map[string]interface{}{
		"env":      map[string]string{},
		"args":     []string{},
		"cmdline":  "",
		"pathname": "",
	}
}

// runEnv builds the evaluation environment for one process.
func runEnv(metadata *procmeta.ProcessMetadata) map[string]interface{} {
	return map[string]interface{}{
		"env":      metadata.Environ,
		"args":     metadata.Args,
		"cmdline":  metadata.CmdlineFull,
		"pathname": metadata.Pathname,
	}
}

func compile(what, source string) (*vm.Program, error) {
	program, err := expr.Compile(source, expr.Env(typeEnv()))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s expression: %w", what, err)
	}
	return program, nil
}
