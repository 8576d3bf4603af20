// Package prompt holds the system prompt templates for the LLM-backed
// stages. Templates are resolved once at startup into a Set and rendered
// per call with text/template; nothing here touches the filesystem.
package prompt

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
)

// Stage names a Set entry.
const (
	StageTranslate = "translate"
	StageCorrect   = "correct"
)

const defaultTranslate = `You are a professional technical translator. Translate the markdown document below from {{.SourceLang}} to {{.TargetLang}}.
Rules:
- Output exactly {{.Lines}} lines, one output line for every input line, in the same order. Keep blank lines blank.
- Keep markdown syntax intact: heading markers, list markers, tables, links, and fenced code blocks. Do not translate code.
- Respond with the translation only. No explanations, no surrounding quotes, no code fence around the answer.
{{- if .PlaceholderHint}}
- {{.PlaceholderHint}}
{{- end}}
{{- if .Glossary}}

TERMINOLOGY (use these exact translations):
{{- range .Glossary}}
  {{.Source}} -> {{.Target}}
{{- end}}
{{- end}}
{{- if .Context}}

CONTEXT (end of the previous section, already translated; do NOT translate it again):
...{{.Context}}
{{- end}}
{{- if .FailureReason}}

Your previous answer was rejected: {{.FailureReason}}
{{- if .PreviousResult}}
Previous answer:
{{.PreviousResult}}
{{- end}}
Fix the problem and answer again.
{{- end}}`

const defaultCorrect = `You are a careful {{.TargetLang}} technical editor. Correct the markdown document below so the listed lint issues are resolved.
Rules:
- Output exactly {{.Lines}} lines, one output line for every input line, in the same order.
- Change only what is needed to fix the issues. Keep the meaning, markdown syntax and code untouched.
- Respond with the corrected document only. No explanations and no code fence around the answer.

ISSUES:
{{.Diagnostics}}
{{- if .FailureReason}}

Your previous answer was rejected: {{.FailureReason}}
Fix the problem and answer again.
{{- end}}`

// Term is one glossary entry rendered into a prompt.
type Term struct {
	Source string
	Target string
}

// Data is the template input.
type Data struct {
	SourceLang      string
	TargetLang      string
	Lines           int
	Context         string
	Glossary        []Term
	Diagnostics     string
	PlaceholderHint string
	FailureReason   string
	PreviousResult  string
}

// Set maps stage names to template text.
type Set struct {
	Translate string
	Correct   string
}

// Defaults returns the built-in templates.
func Defaults() Set {
	return Set{Translate: defaultTranslate, Correct: defaultCorrect}
}

// WithFallback fills empty entries from Defaults.
func (s Set) WithFallback() Set {
	d := Defaults()
	if strings.TrimSpace(s.Translate) == "" {
		s.Translate = d.Translate
	}
	if strings.TrimSpace(s.Correct) == "" {
		s.Correct = d.Correct
	}
	return s
}

// Get returns the template for stage.
func (s Set) Get(stage string) (string, error) {
	switch stage {
	case StageTranslate:
		return s.Translate, nil
	case StageCorrect:
		return s.Correct, nil
	}
	return "", errors.Newf("no prompt for stage %q", stage)
}

// Compile parses every template in the set so syntax errors surface at
// startup rather than mid-run.
func (s Set) Compile() error {
	for _, name := range []string{StageTranslate, StageCorrect} {
		text, _ := s.Get(name)
		if _, err := template.New(name).Option("missingkey=zero").Parse(text); err != nil {
			return errors.Wrapf(err, "parse %s prompt", name)
		}
	}
	return nil
}

// Render executes the template for stage with d.
func (s Set) Render(stage string, d Data) (string, error) {
	text, err := s.Get(stage)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(stage).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, "parse %s prompt", stage)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", errors.Wrapf(err, "render %s prompt", stage)
	}
	return buf.String(), nil
}

// Terms converts a glossary map to a slice sorted by source term, so the
// rendered prompt is stable across runs.
func Terms(glossary map[string]string) []Term {
	terms := make([]Term, 0, len(glossary))
	for src, tgt := range glossary {
		terms = append(terms, Term{Source: src, Target: tgt})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Source < terms[j].Source })
	return terms
}
