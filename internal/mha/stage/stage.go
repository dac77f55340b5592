// Package stage models the notice processing ladder as an ordered table of
// stage codes. Progression only ever moves one rung forward; the terminal
// stage saturates rather than wrapping or erroring.
package stage

import (
	"fmt"
	"strings"

	"noticerecon/pkg/platform/sentinel"
)

// Table is an immutable ordered list of stage codes.
type Table struct {
	codes []string
	index map[string]int
}

// New builds a table from an ordered code list. Codes are upper-cased and
// must be non-empty and unique.
func New(codes []string) (*Table, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("stage table: no codes configured")
	}
	t := &Table{index: make(map[string]int, len(codes))}
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			return nil, fmt.Errorf("stage table: empty code")
		}
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("stage table: duplicate code %q", c)
		}
		t.index[c] = len(t.codes)
		t.codes = append(t.codes, c)
	}
	return t, nil
}

// Codes returns the table in order.
func (t *Table) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Contains reports whether code is a known stage.
func (t *Table) Contains(code string) bool {
	_, ok := t.index[code]
	return ok
}

// First returns the entry stage.
func (t *Table) First() string {
	return t.codes[0]
}

// Terminal returns the last stage of the ladder.
func (t *Table) Terminal() string {
	return t.codes[len(t.codes)-1]
}

// After returns the stage following code, or false when code is terminal.
func (t *Table) After(code string) (string, bool) {
	i, ok := t.index[code]
	if !ok || i == len(t.codes)-1 {
		return "", false
	}
	return t.codes[i+1], true
}

// Advance promotes a notice one rung: the pending stage becomes the last
// completed stage and the following table entry becomes pending. At the
// terminal stage the pending stage saturates in place.
func (t *Table) Advance(next string) (newLast, newNext string, err error) {
	if _, ok := t.index[next]; !ok {
		return "", "", fmt.Errorf("stage %q not in table: %w", next, sentinel.ErrInvalidState)
	}
	after, ok := t.After(next)
	if !ok {
		return next, next, nil
	}
	return next, after, nil
}
