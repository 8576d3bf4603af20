// Package detector identifies the language a text is written in.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// Detector wraps a lingua-go detector. Building one loads language models
// lazily but is still costly; share an instance.
type Detector struct {
	detector lingua.LanguageDetector
}

type options struct {
	codes       []lingua.IsoCode639_1
	minDistance float64
}

type Option func(*options)

// WithLanguages limits detection to the given ISO 639-1 codes. Unknown
// codes are ignored; fewer than two known codes means no restriction.
func WithLanguages(codes ...string) Option {
	return func(o *options) {
		for _, c := range codes {
			iso := lingua.GetIsoCode639_1FromValue(strings.ToLower(baseCode(c)))
			if iso != lingua.UnknownIsoCode639_1 {
				o.codes = append(o.codes, iso)
			}
		}
	}
}

// WithMinimumDistance makes Detect report no result unless the best
// language leads the runner-up by at least d (0 to 0.99).
func WithMinimumDistance(d float64) Option {
	return func(o *options) { o.minDistance = d }
}

func New(opts ...Option) *Detector {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var builder lingua.LanguageDetectorBuilder
	if len(o.codes) >= 2 {
		builder = lingua.NewLanguageDetectorBuilder().FromIsoCodes639_1(o.codes...)
	} else {
		builder = lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	}
	if o.minDistance > 0 {
		builder = builder.WithMinimumRelativeDistance(o.minDistance)
	}
	return &Detector{detector: builder.Build()}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code, e.g. "uk".
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// DetectTag returns the detected language as a BCP 47 tag.
func (d *Detector) DetectTag(text string) (language.Tag, bool) {
	code, ok := d.DetectISO(text)
	if !ok {
		return language.Und, false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// Confidence returns the probability, 0 to 1, that text is written in the
// language with the given code. Unknown codes yield 0.
func (d *Detector) Confidence(text, code string) float64 {
	iso := lingua.GetIsoCode639_1FromValue(strings.ToLower(baseCode(code)))
	if iso == lingua.UnknownIsoCode639_1 {
		return 0
	}
	return d.detector.ComputeLanguageConfidence(text, lingua.GetLanguageFromIsoCode639_1(iso))
}

// baseCode reduces "zh-Hans" or "pt_BR" to its language subtag.
func baseCode(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return code[:i]
	}
	return code
}
