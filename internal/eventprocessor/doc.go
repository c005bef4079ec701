// Package eventprocessor is the per-process scanner: it turns the classified
// lines of one process's log into a procmeta.Record.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│   <prefix>.<pid> log file               │
//	└─────────────────┬───────────────────────┘
//	                  │
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   eventstream                           │  ← Line splitting
//	│   - Splits timestamp / rest             │
//	│   - tracelog.Classify                   │
//	└─────────────────┬───────────────────────┘
//	                  │
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   eventprocessor.Processor              │  ← Routes by event kind
//	└─────────┬───────────────────────────────┘
//	          │
//	          ├──→ every line ───→ FirstSeen (once), LastSeen
//	          ├──→ KindExec ─────→ execargs.DecodeExec → Record.Exec
//	          ├──→ KindExit ─────→ Record.ExitStatus / Record.Signal
//	          ├──→ KindStdout ───→ Record.WroteStdout
//	          ├──→ KindStderr ───→ Record.WroteStderr
//	          └──→ KindSpawn ────→ Record.Children (log order)
//
// A Processor owns its record exclusively, so processors for different PIDs
// can run in parallel without locking.
package eventprocessor
