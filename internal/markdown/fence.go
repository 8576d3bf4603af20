package markdown

import "strings"

// Fence tracks whether a line-by-line scan is inside a fenced code block
// opened by ``` or ~~~. The zero value is outside any fence.
type Fence struct {
	marker byte
	width  int
	line   int
	seen   int
}

// Open reports whether the scan is currently inside a fence.
func (f *Fence) Open() bool {
	return f.width > 0
}

// OpenedAt returns the 1-based number of the line that opened the current
// fence, counted in Feed calls, or 0 when no fence is open.
func (f *Fence) OpenedAt() int {
	if !f.Open() {
		return 0
	}
	return f.line
}

// Feed advances the state past line. A closing fence must use the opening
// character at least as many times and carry no info string.
func (f *Fence) Feed(line string) {
	f.seen++
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return
	}
	ch := trimmed[0]
	if ch != '`' && ch != '~' {
		return
	}
	width := 0
	for width < len(trimmed) && trimmed[width] == ch {
		width++
	}
	if width < 3 {
		return
	}

	if !f.Open() {
		f.marker, f.width, f.line = ch, width, f.seen
		return
	}
	if ch == f.marker && width >= f.width && strings.TrimSpace(trimmed[width:]) == "" {
		f.marker, f.width, f.line = 0, 0, 0
	}
}
