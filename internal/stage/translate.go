package stage

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"

	"github.com/valpere/doctran/internal/placeholder"
	"github.com/valpere/doctran/internal/postprocess"
	"github.com/valpere/doctran/internal/prompt"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
	"github.com/valpere/doctran/internal/validator"
)

// Translate sends a segment to a translation service.
type Translate struct {
	svc        translator.Service
	cfg        translator.ServiceConfig
	prompts    prompt.Set
	sourceLang string
	targetLang string

	glossary    map[string]string
	protectCode bool
	lang        *validator.Validator
}

type TranslateOption func(*Translate)

// WithServiceConfig sets the per-call service configuration.
func WithServiceConfig(cfg translator.ServiceConfig) TranslateOption {
	return func(t *Translate) { t.cfg = cfg }
}

// WithPrompts replaces the default templates.
func WithPrompts(set prompt.Set) TranslateOption {
	return func(t *Translate) { t.prompts = set }
}

// WithGlossary supplies terminology. Only terms found in a segment are
// passed along with it.
func WithGlossary(terms map[string]string) TranslateOption {
	return func(t *Translate) { t.glossary = terms }
}

// WithCodeProtection replaces code and HTML with [PHn] markers before the
// call and restores them afterwards.
func WithCodeProtection(on bool) TranslateOption {
	return func(t *Translate) { t.protectCode = on }
}

// WithLanguageCheck rejects output that is not written in the target
// language.
func WithLanguageCheck(v *validator.Validator) TranslateOption {
	return func(t *Translate) { t.lang = v }
}

func NewTranslate(svc translator.Service, sourceLang, targetLang string, opts ...TranslateOption) *Translate {
	t := &Translate{
		svc:        svc,
		prompts:    prompt.Defaults(),
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Translate) Name() string { return NameTranslate }

func (t *Translate) Transform(ctx context.Context, in Input, tc *TransformContext) (string, error) {
	text := in.Text
	var markers []string
	if t.protectCode {
		text, markers = placeholder.Protect(text)
	}

	glossary := store.MatchTerms(t.glossary, in.Text)
	data := prompt.Data{
		SourceLang: t.sourceLang,
		TargetLang: t.targetLang,
		Lines:      validator.Lines(text),
		Context:    in.Preceding,
		Glossary:   prompt.Terms(glossary),
	}
	if len(markers) > 0 {
		data.PlaceholderHint = placeholder.InstructionHint()
	}
	if tc != nil {
		data.FailureReason = tc.FailureReason
		if tc.HasPrevious {
			data.PreviousResult = tc.PreviousResult
		}
	}

	system, err := t.prompts.Render(prompt.StageTranslate, data)
	if err != nil {
		return "", err
	}

	res, err := t.svc.Translate(ctx, t.cfg, translator.TranslateRequest{
		Text:            text,
		SourceLang:      t.sourceLang,
		TargetLang:      t.targetLang,
		SystemPrompt:    system,
		PreviousContext: in.Preceding,
		GlossaryTerms:   glossary,
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s", t.svc.Name())
	}

	out := res.TranslatedText
	if strings.TrimSpace(out) == "" && strings.TrimSpace(in.Text) != "" {
		return "", errors.Newf("%s returned an empty translation", t.svc.Name())
	}
	if len(markers) > 0 {
		if err := placeholder.Check(out, markers); err != nil {
			return "", err
		}
		out = placeholder.Restore(out, markers)
	}

	return postprocess.Fit(in.Text, out), nil
}

// Check runs the language validator, when configured.
func (t *Translate) Check(_ Input, output string) error {
	if t.lang == nil {
		return nil
	}
	return t.lang.Language(output, baseLanguage(t.targetLang))
}

// baseLanguage reduces a tag like "zh-Hans" to the ISO 639-1 code the
// language detector reports.
func baseLanguage(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	base, _ := t.Base()
	return base.String()
}
