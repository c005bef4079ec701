// Package attributes evaluates user expressions against process metadata:
// custom report columns, the export trace ID and the export parent span ID.
//
// Expressions use the expr language and see four variables:
//
//	env      map[string]string  environment of the displayed execve
//	args     []string           displayed argv
//	cmdline  string             argv joined with spaces
//	pathname string             displayed program path
//
// Three evaluators:
//   - Evaluator: custom columns; map results expand to name.key columns
//   - TraceIDEvaluator: trace ID (32 hex chars, anything else is SHA-256 hashed)
//   - ParentIDEvaluator: parent span ID (16 hex chars, anything else means no parent)
package attributes
