// Package retry runs a fallible, non-idempotent operation a bounded number
// of times. Each attempt after the first receives the previous failure
// reason and the last produced result so the operation can correct itself.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrExhausted is returned when every attempt failed and no attempt ever
// produced a result to fall back on.
var ErrExhausted = errors.New("retry attempts exhausted")

// Context is handed to every attempt after the first.
type Context[T any] struct {
	// Attempt is the 1-based index of the attempt about to run.
	Attempt        int
	FailureReason  string
	PreviousResult T
	HasPrevious    bool
}

// Policy bounds the attempts. MaxAttempts below 1 is treated as 1.
type Policy struct {
	MaxAttempts    int
	Delay          time.Duration
	AttemptTimeout time.Duration
}

// Outcome describes how Run terminated.
type Outcome[T any] struct {
	Value     T
	Attempts  int
	Validated bool
	// Reason is the last failure reason seen, empty if attempt 1 validated.
	Reason string
}

// AttemptFunc produces a candidate. rc is nil on the first attempt.
type AttemptFunc[T any] func(ctx context.Context, rc *Context[T]) (T, error)

// ValidateFunc accepts a candidate, possibly normalizing it, or returns the
// reason it was rejected.
type ValidateFunc[T any] func(T) (T, error)

// FallbackFunc picks the final value once attempts are exhausted. ok is
// false when no attempt produced a result.
type FallbackFunc[T any] func(last T, ok bool) T

// Run calls attempt until validate accepts a result or p.MaxAttempts calls
// were made. Attempt errors and rejected results both consume an attempt.
//
// On exhaustion, fallback decides the value when given; otherwise the last
// produced result is returned unvalidated, and if there is none Run fails
// with ErrExhausted. Cancellation of ctx is checked before every attempt
// and ends the run with the context error.
func Run[T any](ctx context.Context, p Policy, attempt AttemptFunc[T], validate ValidateFunc[T], fallback FallbackFunc[T]) (Outcome[T], error) {
	maxAttempts := max(p.MaxAttempts, 1)

	var (
		rc       *Context[T]
		last     T
		haveLast bool
		reason   string
	)

	for i := 1; i <= maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return Outcome[T]{Attempts: i - 1, Reason: reason}, errors.Wrap(err, "retry canceled")
		}
		if i > 1 {
			if err := sleepWithCtx(ctx, p.Delay); err != nil {
				return Outcome[T]{Attempts: i - 1, Reason: reason}, errors.Wrap(err, "retry canceled")
			}
		}

		result, err := call(ctx, p.AttemptTimeout, attempt, rc)
		if err != nil {
			reason = fmt.Sprintf("transform error: %v", err)
		} else {
			last, haveLast = result, true
			accepted := result
			var verr error
			if validate != nil {
				accepted, verr = validate(result)
			}
			if verr == nil {
				return Outcome[T]{Value: accepted, Attempts: i, Validated: true, Reason: reason}, nil
			}
			reason = fmt.Sprintf("validation failure: %v", verr)
		}

		rc = &Context[T]{
			Attempt:        i + 1,
			FailureReason:  reason,
			PreviousResult: last,
			HasPrevious:    haveLast,
		}
	}

	if err := ctx.Err(); err != nil {
		return Outcome[T]{Attempts: maxAttempts, Reason: reason}, errors.Wrap(err, "retry canceled")
	}

	out := Outcome[T]{Attempts: maxAttempts, Reason: reason}
	switch {
	case fallback != nil:
		out.Value = fallback(last, haveLast)
	case haveLast:
		out.Value = last
	default:
		return out, errors.Wrapf(ErrExhausted, "after %d attempts: %s", maxAttempts, reason)
	}
	return out, nil
}

// call runs one attempt under its own timeout. A panic inside the attempt
// is reported as an attempt error.
func call[T any](ctx context.Context, timeout time.Duration, attempt AttemptFunc[T], rc *Context[T]) (result T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic: %v", r)
		}
	}()
	return attempt(ctx, rc)
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
