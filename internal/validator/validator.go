// Package validator certifies transform output against its input: line
// count (with single trailing-newline reconciliation), markdown structure,
// and the language the output is written in.
package validator

import (
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"

	"github.com/valpere/doctran/internal/detector"
	"github.com/valpere/doctran/internal/markdown"
)

// ErrLanguage marks output detected as a language other than the target.
var ErrLanguage = errors.New("output is not in the target language")

// minValidationLength is the rune count below which detection is too
// unreliable to reject anything.
const minValidationLength = 20

// Validator checks the language of transform output. The detector is
// expensive to build; reuse the instance.
type Validator struct {
	det      *detector.Detector
	minRunes int
}

// New creates a Validator over a detector for all languages.
func New() *Validator {
	return NewWithDetector(detector.New())
}

// NewWithDetector shares an existing detector.
func NewWithDetector(det *detector.Detector) *Validator {
	return &Validator{det: det, minRunes: minValidationLength}
}

// Language returns nil when text reads as targetLang. Markdown markup is
// stripped first. Short text, undetectable text and an empty or unparsable
// targetLang all pass. A mismatch is marked ErrLanguage and names both
// base languages.
func (v *Validator) Language(text, targetLang string) error {
	if targetLang == "" {
		return nil
	}

	plain := strings.TrimSpace(markdown.ToPlainText([]byte(text)))
	if len([]rune(plain)) < v.minRunes {
		return nil
	}

	want, err := language.Parse(strings.ReplaceAll(targetLang, "_", "-"))
	if err != nil {
		return nil
	}
	detected, ok := v.det.DetectTag(plain)
	if !ok {
		return nil
	}

	wantBase, _ := want.Base()
	gotBase, _ := detected.Base()
	if wantBase != gotBase {
		return errors.Wrapf(ErrLanguage, "expected %s but detected %s", wantBase, gotBase)
	}
	return nil
}
