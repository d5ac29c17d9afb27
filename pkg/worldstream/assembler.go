package worldstream

import (
	"strings"
	"unicode"
)

// LineAssembler buffers partial lines across chunk boundaries and emits
// complete lines in arrival order. It never inspects line content.
type LineAssembler struct {
	buf string
}

// Push appends chunk to the pending buffer and returns every line completed
// by it. Lines are split on "\n" or "\r\n" and have trailing whitespace trimmed.
func (a *LineAssembler) Push(chunk string) []string {
	if chunk == "" {
		return nil
	}
	a.buf += chunk
	parts := strings.Split(a.buf, "\n")
	a.buf = parts[len(parts)-1]

	lines := make([]string, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		lines = append(lines, trimLine(p))
	}
	return lines
}

// Flush returns the trailing unterminated fragment, if any, and resets the buffer.
func (a *LineAssembler) Flush() (string, bool) {
	if a.buf == "" {
		return "", false
	}
	line := trimLine(a.buf)
	a.buf = ""
	return line, true
}

// Pending reports the number of buffered bytes not yet terminated by a newline.
func (a *LineAssembler) Pending() int {
	return len(a.buf)
}

func trimLine(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
