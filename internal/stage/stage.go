// Package stage defines the single transform capability the orchestrator
// drives, and its two variants: Translate, backed by a translator.Service,
// and Proofread, which lints a segment and asks a refiner to correct what
// the linter cannot fix mechanically.
package stage

import (
	"context"

	"github.com/valpere/doctran/internal/retry"
	"github.com/valpere/doctran/internal/segmenter"
)

// Stage names.
const (
	NameTranslate = "translate"
	NameProofread = "proofread"
)

// TransformContext carries the previous failure into a retry. It is nil on
// the first attempt and owned by the retry engine; stages only read it.
type TransformContext = retry.Context[string]

// Input is what a stage transforms.
type Input struct {
	// Text is the stage input: the segment content for the first stage,
	// the previous stage's accepted output afterwards.
	Text string
	// Source is the untouched segment content.
	Source string
	// Preceding is read-only context from already finalized segments.
	Preceding string
	Segment   segmenter.Segment
}

// Stage is one fallible, retryable transform of a segment.
type Stage interface {
	Name() string
	Transform(ctx context.Context, in Input, tc *TransformContext) (string, error)
}

// Checker is implemented by stages that validate their own output beyond
// the structural checks the orchestrator performs. A non-nil error rejects
// the output and becomes the failure reason of the next attempt.
type Checker interface {
	Check(in Input, output string) error
}

// Func adapts a plain function to Stage.
type Func struct {
	StageName string
	Fn        func(ctx context.Context, in Input, tc *TransformContext) (string, error)
}

func (f Func) Name() string { return f.StageName }

func (f Func) Transform(ctx context.Context, in Input, tc *TransformContext) (string, error) {
	return f.Fn(ctx, in, tc)
}
