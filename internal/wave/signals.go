package wave

import (
	"strings"
)

// SignalColumn finds the column index of a single-bit signal by substring
// match against the header names, mirroring how probe names carry instance
// prefixes. Returns -1 when the signal is absent from the capture.
func (c *Capture) SignalColumn(name string) int {
	for idx, header := range c.Columns {
		if strings.Contains(header, name) {
			return idx
		}
	}
	return -1
}

// SignalAt returns the raw literal of a single-bit signal at a row. Rows too
// short to carry the column read as indeterminate.
func (c *Capture) SignalAt(row, col int) string {
	if row < 0 || row >= len(c.Rows) || col < 0 {
		return BitUnknown
	}
	r := c.Rows[row]
	if col >= len(r) {
		return BitUnknown
	}
	return strings.TrimSpace(r[col])
}

// SignalHigh reports whether a single-bit signal reads '1' at a row.
func (c *Capture) SignalHigh(row, col int) bool {
	return c.SignalAt(row, col) == BitHigh
}

// Transition records one change of a signal literal.
type Transition struct {
	Time int
	From string
	To   string
}

// Transitions lists the changes of the named signal, optionally filtered by
// from/to literals (empty string matches any).
func (c *Capture) Transitions(name, from, to string) []Transition {
	col := c.SignalColumn(name)
	if col < 0 {
		return nil
	}
	var out []Transition
	prev := ""
	for row := range c.Rows {
		val := c.SignalAt(row, col)
		if prev != "" && val != prev {
			if (from == "" || prev == from) && (to == "" || val == to) {
				out = append(out, Transition{Time: c.TimeAt(row), From: prev, To: val})
			}
		}
		prev = val
	}
	return out
}
