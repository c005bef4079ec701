// Package output renders assembled report rows.
//
// Renderers are pure consumers of []report.Row:
//   - TableRenderer: one bordered row per process
//   - TreeRenderer: the process hierarchy as an indented tree
//   - YAMLRenderer: a nested machine-readable document
//   - OTELExporter: one span per process, parented like the tree
//
// EnvDumper is the exception; it needs the decoded environment, which the
// rows do not carry, and reads it from the tree.
package output
