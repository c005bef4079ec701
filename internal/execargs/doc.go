// Package execargs decodes the argument text of a successful execve line
// into the executed pathname, argument vector and environment vector.
//
// strace prints the call as
//
//	execve("/bin/sh", ["sh", "-c", "echo \"hi\""], ["HOME=/root", "TERM=xterm"]) = 0
//
// Decode walks the text once with a three-state machine:
//
//	            '"'                    '\\'
//	┌─────────┐ ───► ┌────────┐ ───────────► ┌────────────┐
//	│ Outside │      │ Inside │              │ EscapeNext │
//	└─────────┘ ◄─── └────────┘ ◄─────────── └────────────┘
//	   │  ']'   '"'              any char
//	   ▼
//	commit current array (argv first, envp second)
//
// Only a backslash followed by a character is understood: the character is
// taken literally. Two arrays must be closed, either may be empty.
package execargs
