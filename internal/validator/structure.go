package validator

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/valpere/doctran/internal/markdown"
)

// ErrStructure marks a candidate whose heading levels or fenced code blocks
// differ from the original.
var ErrStructure = errors.New("document structure changed")

// Structure checks that candidate keeps the heading level sequence and the
// number of fenced code blocks of original.
func Structure(original, candidate string) error {
	want := markdown.Inspect([]byte(original))
	got := markdown.Inspect([]byte(candidate))

	if wl, gl := want.Levels(), got.Levels(); !slices.Equal(wl, gl) {
		return errors.Wrapf(ErrStructure, "heading levels: expected %v, got %v", wl, gl)
	}
	if want.Fences != got.Fences {
		return errors.Wrapf(ErrStructure, "fenced code blocks: expected %d, got %d", want.Fences, got.Fences)
	}
	return nil
}
