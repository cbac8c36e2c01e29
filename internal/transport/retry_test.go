package transport

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
)

// recorder is a Sleeper that records requested delays without waiting.
type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{-1, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(time.Second, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestAttemptKindString(t *testing.T) {
	assert.Equal(t, "success", AttemptSuccess.String())
	assert.Equal(t, "retryable", AttemptRetryable.String())
	assert.Equal(t, "permanent", AttemptPermanent.String())
	assert.Equal(t, "unknown", AttemptKind(42).String())
}

func TestRetry(t *testing.T) {
	logger := logging.NewNopLogger()
	policy := Policy{MaxRetries: 3, BaseDelay: time.Second}

	t.Run("success first try does not sleep", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		res, err := Retry(context.Background(), policy, rec.sleep, "documents.list", logger, func(context.Context) Attempt {
			calls++
			return Attempt{Kind: AttemptSuccess, StatusCode: 200, Body: []byte(`{}`)}
		})

		require.NoError(t, err)
		assert.Equal(t, AttemptSuccess, res.Kind)
		assert.Equal(t, 1, calls)
		assert.Empty(t, rec.delays)
	})

	t.Run("rate limited then success", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		_, err := Retry(context.Background(), policy, rec.sleep, "documents.list", logger, func(context.Context) Attempt {
			calls++
			if calls <= 3 {
				return Attempt{Kind: AttemptRetryable, StatusCode: 429}
			}
			return Attempt{Kind: AttemptSuccess, StatusCode: 200}
		})

		require.NoError(t, err)
		assert.Equal(t, 4, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)
	})

	t.Run("rate limited exhausts budget", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		_, err := Retry(context.Background(), policy, rec.sleep, "documents.create", logger, func(context.Context) Attempt {
			calls++
			return Attempt{Kind: AttemptRetryable, StatusCode: 429}
		})

		require.Error(t, err)
		assert.True(t, errors.IsRateLimited(err))
		assert.Equal(t, 4, calls)
		assert.Len(t, rec.delays, 3)

		var rl *errors.RateLimitedError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, "documents.create", rl.Endpoint)
		assert.Equal(t, 3, rl.Retries)
	})

	t.Run("network failure exhausts budget", func(t *testing.T) {
		rec := &recorder{}
		cause := stderrors.New("connection refused")
		_, err := Retry(context.Background(), policy, rec.sleep, "documents.update", logger, func(context.Context) Attempt {
			return Attempt{Kind: AttemptRetryable, Err: cause}
		})

		require.Error(t, err)
		assert.True(t, errors.IsNetwork(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		apiErr := errors.NewAPIError("documents.create", 400, "bad request")
		res, err := Retry(context.Background(), policy, rec.sleep, "documents.create", logger, func(context.Context) Attempt {
			calls++
			return Attempt{Kind: AttemptPermanent, StatusCode: 400, Err: apiErr}
		})

		assert.Same(t, apiErr, err)
		assert.Equal(t, 400, res.StatusCode)
		assert.Equal(t, 1, calls)
		assert.Empty(t, rec.delays)
	})

	t.Run("zero retries gives a single attempt", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		_, err := Retry(context.Background(), Policy{BaseDelay: time.Second}, rec.sleep, "documents.list", logger, func(context.Context) Attempt {
			calls++
			return Attempt{Kind: AttemptRetryable, StatusCode: 429}
		})

		assert.True(t, errors.IsRateLimited(err))
		assert.Equal(t, 1, calls)
		assert.Empty(t, rec.delays)
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := Retry(ctx, policy, SleepContext, "documents.list", logger, func(context.Context) Attempt {
			calls++
			return Attempt{Kind: AttemptRetryable, StatusCode: 429}
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryLogsEachRetry(t *testing.T) {
	tl := logging.NewTestLogger(t)
	rec := &recorder{}
	calls := 0

	_, err := Retry(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Millisecond}, rec.sleep, "documents.list", tl.Logger, func(context.Context) Attempt {
		calls++
		if calls == 1 {
			return Attempt{Kind: AttemptRetryable, StatusCode: 429}
		}
		if calls == 2 {
			return Attempt{Kind: AttemptRetryable, Err: stderrors.New("reset")}
		}
		return Attempt{Kind: AttemptSuccess}
	})

	require.NoError(t, err)
	tl.AssertContains(t, "Rate limited, retrying")
	tl.AssertContains(t, "Network error, retrying")
}

func TestRetryLogsThroughContext(t *testing.T) {
	t.Run("context logger keeps its fields", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithFile(logging.WithLogger(context.Background(), tl.Logger), "docs/a.md")
		calls := 0

		_, err := Retry(ctx, Policy{MaxRetries: 1}, (&recorder{}).sleep, "documents.update", nil, func(context.Context) Attempt {
			calls++
			if calls == 1 {
				return Attempt{Kind: AttemptRetryable, StatusCode: 429}
			}
			return Attempt{Kind: AttemptSuccess}
		})

		require.NoError(t, err)
		tl.AssertContains(t, `"file":"docs/a.md"`)
		tl.AssertContains(t, `"endpoint":"documents.update"`)
	})

	t.Run("falls back to the default logger", func(t *testing.T) {
		capture := logging.CaptureLoggingForTest(t)
		calls := 0

		_, err := Retry(context.Background(), Policy{MaxRetries: 1}, (&recorder{}).sleep, "documents.list", nil, func(context.Context) Attempt {
			calls++
			if calls == 1 {
				return Attempt{Kind: AttemptRetryable, Err: stderrors.New("reset")}
			}
			return Attempt{Kind: AttemptSuccess}
		})

		require.NoError(t, err)
		assert.Equal(t, 1, capture.CountContaining("Network error, retrying"))
	})
}
