// Package assembler joins processed segments back into one document.
package assembler

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/valpere/doctran/internal/segmenter"
)

// ErrSeqInvalid is returned when parts are out of order, overlap, or leave
// a gap in the source line range.
var ErrSeqInvalid = errors.New("segment sequence invalid")

// Part is one processed segment ready for assembly.
type Part struct {
	Segment segmenter.Segment
	Text    string
}

// Join concatenates segment contents with a single "\n" between neighbours.
// No separator follows the last segment.
func Join(segments []string) string {
	switch len(segments) {
	case 0:
		return ""
	case 1:
		return segments[0]
	}
	return strings.Join(segments, "\n")
}

// Assemble checks that parts tile a document contiguously from line 1 and
// joins their texts in order.
func Assemble(parts []Part) (string, error) {
	texts := make([]string, len(parts))
	next := 1
	for i, p := range parts {
		seg := p.Segment
		if seg.StartLine != next || seg.EndLine < seg.StartLine {
			return "", errors.Wrapf(ErrSeqInvalid, "part %d covers lines %d-%d, expected start at %d",
				i, seg.StartLine, seg.EndLine, next)
		}
		next = seg.EndLine + 1
		texts[i] = p.Text
	}
	return Join(texts), nil
}
