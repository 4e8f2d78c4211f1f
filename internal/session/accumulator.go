package session

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Accumulator collects transcript fragments in arrival order. It is owned by
// the manager loop and is not safe for concurrent use.
type Accumulator struct {
	b strings.Builder
}

// Append adds a fragment, inserting a single space only when neither side of
// the join already carries whitespace. Whitespace-only fragments are ignored.
func (a *Accumulator) Append(fragment string) {
	if strings.TrimSpace(fragment) == "" {
		return
	}
	if a.b.Len() > 0 && !endsWithSpace(a.b.String()) && !startsWithSpace(fragment) {
		a.b.WriteByte(' ')
	}
	a.b.WriteString(fragment)
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

// Snapshot returns the trimmed transcript without modifying the buffer.
func (a *Accumulator) Snapshot() string {
	return strings.TrimSpace(a.b.String())
}

func (a *Accumulator) Reset() {
	a.b.Reset()
}

func (a *Accumulator) Len() int {
	return a.b.Len()
}
