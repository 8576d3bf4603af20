// Package orchestrator drives a document through the segment, transform,
// validate, retry and reassemble pipeline.
//
// Segments are processed in document order by default so later segments can
// read the finalized output of earlier ones as context. With Concurrency
// above 1 segments run in parallel without cross-segment context, and
// results are collected by index so reassembly order never depends on
// completion order.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/valpere/doctran/internal/assembler"
	"github.com/valpere/doctran/internal/debug"
	"github.com/valpere/doctran/internal/retry"
	"github.com/valpere/doctran/internal/segmenter"
	"github.com/valpere/doctran/internal/stage"
	"github.com/valpere/doctran/internal/validator"
)

// FailurePolicy decides what happens when a stage exhausts its attempts.
type FailurePolicy string

const (
	// PolicyAbort stops the whole run at the first exhausted segment.
	PolicyAbort FailurePolicy = "abort"
	// PolicyDegrade keeps the segment's pre-stage text, skips its later
	// stages and continues with the next segment.
	PolicyDegrade FailurePolicy = "degrade"
)

// ParsePolicy converts a configuration value to a FailurePolicy.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAbort, PolicyDegrade:
		return p, nil
	}
	return "", errors.WithHint(
		errors.Wrapf(ErrConfiguration, "unknown failure policy %q", s),
		"use abort or degrade")
}

type OrchestratorConfig struct {
	// MaxAttempts bounds the calls per stage per segment, first call included.
	MaxAttempts int
	RetryDelay  time.Duration
	// Timeout bounds each external call; expiry counts as a failed attempt.
	Timeout       time.Duration
	FailurePolicy FailurePolicy
	// Concurrency above 1 processes segments in parallel and disables
	// cross-segment context.
	Concurrency int
	// ContextWords is how many trailing words of the previous finalized
	// segment are passed to the next one; 0 disables context.
	ContextWords      int
	SkipNonCandidates bool
	VerifyStructure   bool
}

type Orchestrator struct {
	stages    []stage.Stage
	config    OrchestratorConfig
	segmenter *segmenter.Segmenter
	logger    *zap.SugaredLogger
	sink      debug.Sink
	limiter   *rate.Limiter
}

type Option func(*Orchestrator)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSink records every segment input and stage attempt output.
func WithSink(s debug.Sink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sink = s
		}
	}
}

func WithSegmenter(s *segmenter.Segmenter) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.segmenter = s
		}
	}
}

// WithRequestsPerMinute throttles external calls across all stages and
// workers. n <= 0 means unlimited.
func WithRequestsPerMinute(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// New validates the pipeline setup. Stages run in the given order.
func New(stages []stage.Stage, config OrchestratorConfig, opts ...Option) (*Orchestrator, error) {
	if len(stages) == 0 {
		return nil, errors.WithHint(errors.Wrap(ErrConfiguration, "no stages"), "configure at least one stage")
	}
	for i, st := range stages {
		if st == nil {
			return nil, errors.Wrapf(ErrConfiguration, "stage %d is nil", i)
		}
	}
	if config.MaxAttempts < 1 {
		return nil, errors.Wrapf(ErrConfiguration, "max attempts must be at least 1, got %d", config.MaxAttempts)
	}
	policy, err := ParsePolicy(string(config.FailurePolicy))
	if err != nil {
		return nil, err
	}
	config.FailurePolicy = policy
	config.Concurrency = max(config.Concurrency, 1)

	o := &Orchestrator{
		stages:    stages,
		config:    config,
		segmenter: segmenter.New(),
		logger:    zap.NewNop().Sugar(),
		sink:      debug.Nop{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run processes source and returns the result. The error is non-nil when
// the run was aborted, canceled, or failed final validation; a run whose
// segments degraded returns a nil error with Result.IsValid false.
func (o *Orchestrator) Run(ctx context.Context, source string) (*Result, error) {
	res := &Result{State: StateInit, SourceLines: validator.Lines(source)}

	o.transition(res, StateSegmenting)
	segs := o.segmenter.Split(source)
	o.logger.Infow("document segmented", "segments", len(segs), "lines", res.SourceLines)

	o.transition(res, StateProcessing)
	res.Segments = make([]ProcessedSegment, len(segs))
	for i, seg := range segs {
		res.Segments[i] = ProcessedSegment{Segment: seg, FinalText: seg.Content, Status: StatusPending}
	}

	var err error
	if o.config.Concurrency > 1 {
		err = o.processParallel(ctx, res.Segments)
	} else {
		err = o.processSequential(ctx, res.Segments)
	}

	for _, ps := range res.Segments {
		res.SegmentErrors = append(res.SegmentErrors, ps.StageErrors...)
	}

	if err != nil {
		return o.incomplete(ctx, res, err)
	}

	o.transition(res, StateReassembling)
	doc, err := o.assemble(res.Segments)
	if err != nil {
		o.transition(res, StateFailed)
		return res, errors.Mark(err, ErrReassemblyMismatch)
	}

	o.transition(res, StateFinalValidation)
	res.Document = doc
	res.OutputLines = validator.Lines(doc)
	res.Complete = true
	if res.OutputLines != res.SourceLines {
		o.transition(res, StateFailed)
		return res, errors.Wrapf(ErrReassemblyMismatch, "source has %d lines, output has %d", res.SourceLines, res.OutputLines)
	}

	res.IsValid = len(res.SegmentErrors) == 0
	o.transition(res, StateDone)
	o.logger.Infow("pipeline finished",
		"segments", len(res.Segments),
		"done", res.Count(StatusDone),
		"skipped", res.Count(StatusSkipped),
		"degraded", res.Count(StatusDegraded),
		"valid", res.IsValid)
	return res, nil
}

// incomplete finishes a run that stopped early. Finalized segments are kept
// and the rest carry their source text, so the partial document still has
// the source line count.
func (o *Orchestrator) incomplete(ctx context.Context, res *Result, cause error) (*Result, error) {
	if doc, err := o.assemble(res.Segments); err == nil {
		res.Document = doc
		res.OutputLines = validator.Lines(doc)
	}
	o.transition(res, StateFailed)

	if errors.Is(cause, ErrAborted) {
		return res, cause
	}
	finalized := len(res.Segments) - res.Count(StatusPending)
	err := errors.Wrapf(cause, "%d of %d segments finalized", finalized, len(res.Segments))
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.WithSecondaryError(err, ctxErr)
	}
	return res, errors.Mark(err, ErrIncomplete)
}

func (o *Orchestrator) processSequential(ctx context.Context, segs []ProcessedSegment) error {
	var preceding string
	for i := range segs {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "canceled before segment")
		}
		ps, err := o.processSegment(ctx, i, segs[i].Segment, preceding)
		segs[i] = ps
		if err != nil {
			return err
		}
		if o.config.ContextWords > 0 {
			preceding = segmenter.ExtractContext(ps.FinalText, o.config.ContextWords)
		}
	}
	return nil
}

func (o *Orchestrator) processParallel(ctx context.Context, segs []ProcessedSegment) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Concurrency)

	for i := range segs {
		seg := segs[i].Segment
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Wrap(err, "canceled before segment")
			}
			ps, err := o.processSegment(gctx, i, seg, "")
			// each worker owns its index
			segs[i] = ps
			return err
		})
	}
	return g.Wait()
}

// processSegment runs every stage over one segment. A non-nil error means
// the run must stop: either the abort policy fired or ctx was canceled.
func (o *Orchestrator) processSegment(ctx context.Context, idx int, seg segmenter.Segment, preceding string) (ProcessedSegment, error) {
	ps := ProcessedSegment{Segment: seg, FinalText: seg.Content, Status: StatusDone}
	log := o.logger.With("segment", idx, "lines", lineRange(seg))

	o.sink.RecordSegmentInput(debug.Entry{Segment: idx, StartLine: seg.StartLine, EndLine: seg.EndLine, Text: seg.Content})

	if o.config.SkipNonCandidates && !seg.IsTransformCandidate {
		ps.Status = StatusSkipped
		log.Debugw("segment skipped, nothing to transform")
		o.sink.RecordSegmentOutput(debug.Entry{Stage: "skipped", Segment: idx, StartLine: seg.StartLine, EndLine: seg.EndLine, Text: seg.Content})
		return ps, nil
	}

	policy := retry.Policy{
		MaxAttempts:    o.config.MaxAttempts,
		Delay:          o.config.RetryDelay,
		AttemptTimeout: o.config.Timeout,
	}

	text := seg.Content
	for _, st := range o.stages {
		in := stage.Input{Text: text, Source: seg.Content, Preceding: preceding, Segment: seg}
		stageLog := log.With("stage", st.Name())

		var fallback retry.FallbackFunc[string]
		if o.config.FailurePolicy == PolicyDegrade {
			fallback = func(string, bool) string { return in.Text }
		}

		out, err := retry.Run(ctx, policy, o.attempt(idx, st, in, stageLog), o.validate(st, in, stageLog), fallback)
		ps.Attempts += out.Attempts

		if err == nil && out.Validated {
			text = out.Value
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			ps.Status = StatusPending
			ps.FinalText = seg.Content
			return ps, errors.Wrapf(err, "segment %d", idx)
		}

		segErr := &SegmentError{
			Index:     idx,
			StartLine: seg.StartLine,
			EndLine:   seg.EndLine,
			Stage:     st.Name(),
			Reason:    out.Reason,
		}
		ps.StageErrors = append(ps.StageErrors, segErr.Error())

		if o.config.FailurePolicy == PolicyAbort {
			ps.Status = StatusFailed
			stageLog.Errorw("stage exhausted retries, aborting", "attempts", out.Attempts, "reason", out.Reason)
			return ps, errors.Mark(segErr, ErrAborted)
		}

		stageLog.Warnw("stage exhausted retries, segment degraded", "attempts", out.Attempts, "reason", out.Reason)
		ps.Status = StatusDegraded
		text = out.Value
		break
	}

	ps.FinalText = text
	o.sink.RecordSegmentOutput(debug.Entry{Stage: "final", Segment: idx, StartLine: seg.StartLine, EndLine: seg.EndLine, Text: text})
	return ps, nil
}

func (o *Orchestrator) attempt(idx int, st stage.Stage, in stage.Input, log *zap.SugaredLogger) retry.AttemptFunc[string] {
	return func(ctx context.Context, tc *retry.Context[string]) (string, error) {
		n, reason := 1, ""
		if tc != nil {
			n, reason = tc.Attempt, tc.FailureReason
			log.Infow("retrying stage", "attempt", n, "reason", reason)
		}

		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return "", errors.Wrap(err, "rate limiter")
			}
		}

		out, err := st.Transform(ctx, in, tc)
		if err != nil {
			var tmp interface{ Temporary() bool }
			if errors.As(err, &tmp) {
				log.Warnw("stage attempt failed", "attempt", n, "error", err, "temporary", tmp.Temporary())
			} else {
				log.Warnw("stage attempt failed", "attempt", n, "error", err)
			}
			return "", err
		}
		o.sink.RecordSegmentOutput(debug.Entry{
			Stage:     st.Name(),
			Segment:   idx,
			StartLine: in.Segment.StartLine,
			EndLine:   in.Segment.EndLine,
			Attempt:   n,
			Text:      out,
			Reason:    reason,
		})
		return out, nil
	}
}

// validate certifies a candidate: the line count against the stage input
// (with single trailing-newline reconciliation), then optionally the
// markdown structure against the source segment, then the stage's own
// check.
func (o *Orchestrator) validate(st stage.Stage, in stage.Input, log *zap.SugaredLogger) retry.ValidateFunc[string] {
	checker, _ := st.(stage.Checker)
	return func(candidate string) (string, error) {
		adjusted, err := validator.CheckLineCount(in.Text, candidate)
		if err == nil && o.config.VerifyStructure {
			err = validator.Structure(in.Source, adjusted)
		}
		if err == nil && checker != nil {
			err = checker.Check(in, adjusted)
		}
		if err != nil {
			log.Warnw("stage output rejected", "error", err)
			return candidate, err
		}
		return adjusted, nil
	}
}

func (o *Orchestrator) assemble(segs []ProcessedSegment) (string, error) {
	parts := make([]assembler.Part, len(segs))
	for i, ps := range segs {
		parts[i] = assembler.Part{Segment: ps.Segment, Text: ps.FinalText}
	}
	return assembler.Assemble(parts)
}

func (o *Orchestrator) transition(res *Result, to State) {
	o.logger.Debugw("pipeline state", "from", res.State, "to", to)
	res.State = to
}

func lineRange(seg segmenter.Segment) string {
	return fmt.Sprintf("%d-%d", seg.StartLine, seg.EndLine)
}
