// Package logs prepares output printed by remotely executed code for display
// in a terminal.
package logs

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Clean strips escape sequences and control characters from s. Tabs and
// newlines are kept, CRLF becomes LF, and a lone CR rewinds to the start of
// its line so progress-bar redraws collapse to their final state.
func Clean(s string) string {
	s = strings.ReplaceAll(ansi.Strip(s), "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = overstrike(line)
	}
	return strings.Join(lines, "\n")
}

// overstrike drops control characters from line and applies carriage
// returns: text after a CR overwrites the line from column zero.
func overstrike(line string) string {
	var buf []rune
	col := 0
	for _, r := range line {
		switch {
		case r == '\r':
			col = 0
		case r != '\t' && r <= 0x1f, r == 0x7f:
		default:
			if col < len(buf) {
				buf[col] = r
			} else {
				buf = append(buf, r)
			}
			col++
		}
	}
	return string(buf)
}

// Tail is the end of a long output.
type Tail struct {
	Content string
	Hidden  int // lines dropped from the front
}

// Truncated reports whether any lines were dropped.
func (t Tail) Truncated() bool { return t.Hidden > 0 }

// TailOf keeps the last maxLines lines of s that fit in maxBytes. A single
// final line longer than maxBytes is cut to its last maxBytes bytes,
// starting on a rune boundary.
func TailOf(s string, maxLines, maxBytes int) Tail {
	trailing := strings.HasSuffix(s, "\n")
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	if s == "" {
		return Tail{}
	}

	size := 0
	keep := 0
	for i := len(lines) - 1; i >= 0 && keep < maxLines; i-- {
		n := len(lines[i])
		if keep > 0 {
			n++
		}
		if size+n > maxBytes {
			break
		}
		size += n
		keep++
	}

	if keep == 0 {
		last := lines[len(lines)-1]
		cut := len(last) - maxBytes
		for cut > 0 && cut < len(last) && !utf8Start(last[cut]) {
			cut++
		}
		return Tail{Content: last[max(cut, 0):], Hidden: len(lines) - 1}
	}

	content := strings.Join(lines[len(lines)-keep:], "\n")
	if trailing {
		content += "\n"
	}
	return Tail{Content: content, Hidden: len(lines) - keep}
}

func utf8Start(b byte) bool { return b&0xc0 != 0x80 }
