// Package placeholder protects structured content (fenced code blocks,
// inline code spans, HTML tags) during translation by replacing it with
// numbered markers ([PH0], [PH1], …) that LLMs are instructed to preserve.
// After translation, Restore substitutes the markers back.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMarkerLost is returned by Check when the transform dropped markers.
var ErrMarkerLost = errors.New("placeholder markers lost")

var (
	// fenced code blocks opened and closed by ``` or ~~~ at line start
	reFencedCode = regexp.MustCompile("(?ms)^ {0,3}```.*?^ {0,3}```[^\\n]*|^ {0,3}~~~.*?^ {0,3}~~~[^\\n]*")

	// inline code spans: `...`
	reInlineCode = regexp.MustCompile("`[^`\n]+`")

	// HTML/XML tags: opening, closing, and self-closing
	reHTMLTag = regexp.MustCompile(`<[^>\n]+>`)

	// placeholder reference in translated text
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces structured markup (fenced code blocks, inline code,
// HTML tags) with numbered placeholders [PH0], [PH1], … in the order they
// appear in text. It returns the modified text and the slice of captured
// originals so Restore can put them back.
func Protect(text string) (string, []string) {
	var markers []string

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(markers))
		markers = append(markers, match)
		return id
	}

	// Fenced first (longest match), then inline, then HTML tags.
	text = reFencedCode.ReplaceAllStringFunc(text, replace)
	text = reInlineCode.ReplaceAllStringFunc(text, replace)
	text = reHTMLTag.ReplaceAllStringFunc(text, replace)

	return text, markers
}

// Restore substitutes [PHn] markers in text back with the originals captured
// by Protect. Unrecognised indices leave the placeholder as-is.
func Restore(text string, markers []string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint returns a sentence to append to an LLM prompt so the
// model knows to leave placeholders intact.
func InstructionHint() string {
	return "Preserve all [PHn] markers exactly as they appear, each on the same line as in the input. Do not translate, move, or remove them."
}

// Validate returns the indices of markers created by Protect that are
// missing from text.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

// Check is Validate in error form, marked with ErrMarkerLost.
func Check(text string, markers []string) error {
	missing := Validate(text, markers)
	if len(missing) == 0 {
		return nil
	}
	return errors.Wrapf(ErrMarkerLost, "missing markers %v", missing)
}
