package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptAll(s string) (string, error) { return s, nil }

func TestRun_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	out, err := Run(context.Background(), Policy{MaxAttempts: 3},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			assert.Nil(t, rc, "first attempt must not receive a context")
			return "ok", nil
		}, acceptAll, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ok", out.Value)
	assert.True(t, out.Validated)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, out.Reason)
}

func TestRun_SucceedsOnThirdAttempt(t *testing.T) {
	var contexts []*Context[string]
	calls := 0

	out, err := Run(context.Background(), Policy{MaxAttempts: 3},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			contexts = append(contexts, rc)
			return fmt.Sprintf("result-%d", calls), nil
		},
		func(s string) (string, error) {
			if s != "result-3" {
				return s, errors.New("wrong line count")
			}
			return s, nil
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "result-3", out.Value)
	assert.True(t, out.Validated)

	require.Len(t, contexts, 3)
	assert.Nil(t, contexts[0])
	for i, rc := range contexts[1:] {
		require.NotNil(t, rc)
		assert.NotEmpty(t, rc.FailureReason)
		assert.Contains(t, rc.FailureReason, "wrong line count")
		assert.Equal(t, i+2, rc.Attempt)
		assert.True(t, rc.HasPrevious)
		assert.Equal(t, fmt.Sprintf("result-%d", i+1), rc.PreviousResult)
	}
}

func TestRun_ValidatorAdjustsValue(t *testing.T) {
	out, err := Run(context.Background(), Policy{MaxAttempts: 1},
		func(ctx context.Context, rc *Context[string]) (string, error) { return "text", nil },
		func(s string) (string, error) { return s + "\n", nil }, nil)

	require.NoError(t, err)
	assert.Equal(t, "text\n", out.Value)
}

func TestRun_ExactlyMaxAttemptsWhenNoneValidate(t *testing.T) {
	calls := 0
	out, err := Run(context.Background(), Policy{MaxAttempts: 4},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			return "bad", nil
		},
		func(s string) (string, error) { return s, errors.New("nope") }, nil)

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.False(t, out.Validated)
	assert.Equal(t, "bad", out.Value, "last result is returned as a degraded success")
	assert.Contains(t, out.Reason, "validation failure: nope")
}

func TestRun_AllAttemptsFailWithoutFallback(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), Policy{MaxAttempts: 2},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			if rc != nil {
				assert.False(t, rc.HasPrevious)
				assert.Contains(t, rc.FailureReason, "transform error: provider down")
			}
			return "", errors.New("provider down")
		}, acceptAll, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, 2, calls)
}

func TestRun_FallbackReceivesLastResult(t *testing.T) {
	var gotLast string
	var gotOK bool
	out, err := Run(context.Background(), Policy{MaxAttempts: 2},
		func(ctx context.Context, rc *Context[string]) (string, error) { return "candidate", nil },
		func(s string) (string, error) { return s, errors.New("invalid") },
		func(last string, ok bool) string {
			gotLast, gotOK = last, ok
			return "original"
		})

	require.NoError(t, err)
	assert.Equal(t, "original", out.Value)
	assert.False(t, out.Validated)
	assert.Equal(t, "candidate", gotLast)
	assert.True(t, gotOK)
}

func TestRun_FallbackWhenEveryAttemptThrew(t *testing.T) {
	out, err := Run(context.Background(), Policy{MaxAttempts: 2},
		func(ctx context.Context, rc *Context[string]) (string, error) { return "", errors.New("boom") },
		acceptAll,
		func(last string, ok bool) string {
			assert.False(t, ok)
			return "fallback"
		})

	require.NoError(t, err)
	assert.Equal(t, "fallback", out.Value)
}

func TestRun_PreviousResultCarriedOverError(t *testing.T) {
	calls := 0
	var third *Context[string]
	_, _ = Run(context.Background(), Policy{MaxAttempts: 3},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			switch calls {
			case 1:
				return "first", nil
			case 2:
				return "", errors.New("timeout")
			default:
				third = rc
				return "third", nil
			}
		},
		func(s string) (string, error) { return s, errors.New("invalid") }, nil)

	require.NotNil(t, third)
	assert.True(t, third.HasPrevious)
	assert.Equal(t, "first", third.PreviousResult)
	assert.Contains(t, third.FailureReason, "timeout")
}

func TestRun_ZeroMaxAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), Policy{},
		func(ctx context.Context, rc *Context[int]) (int, error) {
			calls++
			return 1, nil
		}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRun_CanceledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Run(ctx, Policy{MaxAttempts: 3},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			return "x", nil
		}, acceptAll, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, calls)
}

func TestRun_AttemptTimeoutConsumesAttempt(t *testing.T) {
	calls := 0
	out, err := Run(context.Background(), Policy{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			if calls == 1 {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "fast", nil
		}, acceptAll, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "fast", out.Value)
	assert.Contains(t, out.Reason, "deadline exceeded")
}

func TestRun_PanicIsAnAttemptFailure(t *testing.T) {
	calls := 0
	out, err := Run(context.Background(), Policy{MaxAttempts: 2},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			if calls == 1 {
				panic("unexpected nil")
			}
			assert.Contains(t, rc.FailureReason, "panic: unexpected nil")
			return "ok", nil
		}, acceptAll, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", out.Value)
}

func TestRun_DelayIsCancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	_, err := Run(ctx, Policy{MaxAttempts: 3, Delay: time.Minute},
		func(ctx context.Context, rc *Context[string]) (string, error) {
			calls++
			cancel()
			return "", errors.New("boom")
		}, acceptAll, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 5*time.Second)
}
