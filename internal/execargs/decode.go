package execargs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTokenStream is returned when the input closes fewer than two
// bracketed arrays.
var ErrMalformedTokenStream = errors.New("malformed token stream")

// Exec is a decoded execve call.
type Exec struct {
	Pathname string
	Argv     []string
	Envp     []string
}

type state int

const (
	stateOutside state = iota
	stateInside
	stateEscapeNext
)

// tokenizer holds the accumulators for a single Decode call.
type tokenizer struct {
	state  state
	token  strings.Builder
	array  []string
	closed int
	out    [2][]string
}

// step advances the machine by one character.
func (t *tokenizer) step(c byte) {
	switch t.state {
	case stateEscapeNext:
		t.token.WriteByte(c)
		t.state = stateInside
	case stateInside:
		switch c {
		case '\\':
			t.state = stateEscapeNext
		case '"':
			t.array = append(t.array, t.token.String())
			t.token.Reset()
			t.state = stateOutside
		default:
			t.token.WriteByte(c)
		}
	case stateOutside:
		switch c {
		case '"':
			t.state = stateInside
		case ']':
			t.commit()
		}
	}
}

// commit stores the accumulated array in the next free output slot.
// Arrays closed after the second are dropped.
func (t *tokenizer) commit() {
	if t.closed < len(t.out) {
		t.out[t.closed] = t.array
	}
	t.closed++
	t.array = nil
}

// Decode decodes two consecutive bracketed arrays of quoted strings into the
// argument and environment vectors.
func Decode(s string) (argv, envp []string, err error) {
	var t tokenizer
	for i := 0; i < len(s); i++ {
		t.step(s[i])
	}

	if t.closed < 2 {
		return nil, nil, fmt.Errorf("%w: closed %d of 2 arrays", ErrMalformedTokenStream, t.closed)
	}

	argv, envp = t.out[0], t.out[1]
	if argv == nil {
		argv = []string{}
	}
	if envp == nil {
		envp = []string{}
	}
	return argv, envp, nil
}

// DecodeExec decodes the full execve argument text: a quoted pathname
// followed by the argument and environment arrays.
func DecodeExec(payload string) (*Exec, error) {
	pathname, rest, err := leadingString(payload)
	if err != nil {
		return nil, err
	}

	argv, envp, err := Decode(rest)
	if err != nil {
		return nil, err
	}

	return &Exec{Pathname: pathname, Argv: argv, Envp: envp}, nil
}

// leadingString decodes the quoted string opening s and returns it together
// with the text following its closing quote.
func leadingString(s string) (string, string, error) {
	s = strings.TrimLeft(s, " \t")
	if !strings.HasPrefix(s, `"`) {
		return "", "", fmt.Errorf("%w: missing pathname", ErrMalformedTokenStream)
	}

	var t tokenizer
	for i := 0; i < len(s); i++ {
		t.step(s[i])
		if len(t.array) == 1 {
			return t.array[0], s[i+1:], nil
		}
		if t.closed > 0 {
			break
		}
	}
	return "", "", fmt.Errorf("%w: missing pathname", ErrMalformedTokenStream)
}

// Encode renders argv and envp in the bracketed, quoted form Decode reads.
func Encode(argv, envp []string) string {
	return encodeArray(argv) + ", " + encodeArray(envp)
}

// Quote quotes s, escaping backslashes and double quotes.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func encodeArray(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = Quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
