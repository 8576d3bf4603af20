package stage

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/valpere/doctran/internal/lint"
	"github.com/valpere/doctran/internal/postprocess"
	"github.com/valpere/doctran/internal/prompt"
	"github.com/valpere/doctran/internal/refiner"
	"github.com/valpere/doctran/internal/validator"
)

// Proofread lints a segment, applies the mechanical fixes, and sends the
// remaining wording issues to a refiner. A segment with no such issues is
// returned fixed without an external call, unless that same text was already
// rejected on a previous attempt.
type Proofread struct {
	ref        refiner.Refiner
	linter     lint.Linter
	prompts    prompt.Set
	targetLang string
}

func NewProofread(ref refiner.Refiner, linter lint.Linter, prompts prompt.Set, targetLang string) *Proofread {
	return &Proofread{ref: ref, linter: linter, prompts: prompts, targetLang: targetLang}
}

func (p *Proofread) Name() string { return NameProofread }

func (p *Proofread) Transform(ctx context.Context, in Input, tc *TransformContext) (string, error) {
	report := p.linter.Lint(in.Text)

	var issues []lint.Message
	for _, m := range report.Messages {
		// structure is guarded by validation, not rewritten
		if !lint.Structural(m.Rule) {
			issues = append(issues, m)
		}
	}
	// linting is deterministic: once its output was rejected, repeating it
	// cannot pass, so the refiner gets the draft with the rejection reason
	rejected := tc != nil && tc.HasPrevious && tc.PreviousResult == report.FixedText
	if len(issues) == 0 && !rejected {
		return report.FixedText, nil
	}

	diagnostics := lint.Format(issues)
	if diagnostics == "" {
		diagnostics = "none found by the linter"
	}
	data := prompt.Data{
		TargetLang:  p.targetLang,
		Lines:       validator.Lines(report.FixedText),
		Diagnostics: diagnostics,
	}
	if tc != nil {
		data.FailureReason = tc.FailureReason
	}
	system, err := p.prompts.Render(prompt.StageCorrect, data)
	if err != nil {
		return "", err
	}

	out, err := p.ref.Refine(ctx, refiner.Request{Instructions: system, Draft: report.FixedText})
	if err != nil {
		return "", errors.Wrap(err, "refine")
	}

	out = postprocess.Fit(report.FixedText, out)
	return p.linter.Lint(out).FixedText, nil
}
