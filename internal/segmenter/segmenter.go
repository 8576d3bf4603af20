// Package segmenter splits a markdown document into ordered segments at
// level 1-3 ATX heading boundaries. Segments tile the document exactly:
// joining their contents with "\n" reproduces the input byte for byte.
//
// Heading-like lines inside fenced code blocks (``` or ~~~) never start a
// new segment.
package segmenter

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/valpere/doctran/internal/markdown"
)

// headingRe matches an ATX heading of level 1 to 3 with non-empty text.
var headingRe = regexp.MustCompile(`^#{1,3}[ \t]+\S`)

// Segment is a contiguous, 1-indexed, inclusive range of document lines.
type Segment struct {
	Content              string `json:"content"`
	StartLine            int    `json:"start_line"`
	EndLine              int    `json:"end_line"`
	HasFencedCode        bool   `json:"has_fenced_code"`
	IsTransformCandidate bool   `json:"is_transform_candidate"`
}

// Lines returns the number of lines the segment covers.
func (s Segment) Lines() int {
	return s.EndLine - s.StartLine + 1
}

// Segmenter splits documents. The zero value treats any letter outside
// fenced code as a transform candidate.
type Segmenter struct {
	scripts []*unicode.RangeTable
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithScripts restricts transform-candidate detection to runes from the
// given unicode tables, typically the alphabet of the source language.
func WithScripts(tables ...*unicode.RangeTable) Option {
	return func(s *Segmenter) {
		s.scripts = tables
	}
}

// New creates a Segmenter.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split returns the segments of text in document order. Empty input yields
// a single empty segment covering line 1. Lines before the first qualifying
// heading form a leading segment; a document that starts with a heading has
// no leading segment.
func (s *Segmenter) Split(text string) []Segment {
	lines := strings.Split(text, "\n")

	var segments []Segment
	var fence markdown.Fence
	start := 0

	for i, line := range lines {
		if i > start && !fence.Open() && headingRe.MatchString(line) {
			segments = append(segments, s.build(lines, start, i-1))
			start = i
		}
		fence.Feed(line)
	}

	return append(segments, s.build(lines, start, len(lines)-1))
}

// build creates the segment for lines[from..to] (0-indexed, inclusive).
func (s *Segmenter) build(lines []string, from, to int) Segment {
	part := lines[from : to+1]
	content := strings.Join(part, "\n")
	return Segment{
		Content:              content,
		StartLine:            from + 1,
		EndLine:              to + 1,
		HasFencedCode:        strings.Contains(content, "```"),
		IsTransformCandidate: s.isCandidate(part),
	}
}

// isCandidate reports whether any line outside fenced code contains a rune
// the transform is meant to rewrite.
func (s *Segmenter) isCandidate(lines []string) bool {
	var fence markdown.Fence
	for _, line := range lines {
		wasOpen := fence.Open()
		fence.Feed(line)
		if wasOpen || fence.Open() {
			continue
		}
		for _, r := range line {
			if s.matches(r) {
				return true
			}
		}
	}
	return false
}

func (s *Segmenter) matches(r rune) bool {
	if len(s.scripts) == 0 {
		return unicode.IsLetter(r)
	}
	return unicode.In(r, s.scripts...)
}
