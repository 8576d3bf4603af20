package validator

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrLineCount marks a candidate whose line count cannot be reconciled with
// its original by a single trailing-newline adjustment.
var ErrLineCount = errors.New("line count mismatch")

// Result is the outcome of a line-count comparison.
type Result struct {
	Valid bool
	// Text is the candidate, adjusted by at most one trailing newline when
	// that reconciles the counts.
	Text string
}

// Lines returns the number of "\n"-delimited lines in s. The empty string
// is one line.
func Lines(s string) int {
	return strings.Count(s, "\n") + 1
}

// LineCount compares the line counts of original and candidate. It is pure
// and never fails; an invalid result carries the candidate unchanged.
func LineCount(original, candidate string) Result {
	want, got := Lines(original), Lines(candidate)

	switch {
	case want == got:
		return Result{Valid: true, Text: candidate}
	case got == want+1 && strings.HasSuffix(candidate, "\n"):
		return Result{Valid: true, Text: candidate[:len(candidate)-1]}
	case want == got+1:
		return Result{Valid: true, Text: candidate + "\n"}
	}
	return Result{Valid: false, Text: candidate}
}

// CheckLineCount is LineCount in error form. The returned error is marked
// with ErrLineCount and states both counts.
func CheckLineCount(original, candidate string) (string, error) {
	res := LineCount(original, candidate)
	if !res.Valid {
		return candidate, errors.Wrapf(ErrLineCount, "expected %d lines, got %d", Lines(original), Lines(candidate))
	}
	return res.Text, nil
}
