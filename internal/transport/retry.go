package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
)

// AttemptKind classifies the result of a single request attempt.
type AttemptKind int

const (
	// AttemptSuccess is a 2xx answer; the body is ready to decode.
	AttemptSuccess AttemptKind = iota
	// AttemptRetryable is a 429 answer or a transport failure.
	AttemptRetryable
	// AttemptPermanent is any other non-2xx answer.
	AttemptPermanent
)

// String returns the string representation of an AttemptKind.
func (k AttemptKind) String() string {
	switch k {
	case AttemptSuccess:
		return "success"
	case AttemptRetryable:
		return "retryable"
	case AttemptPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Attempt is the outcome of one HTTP round trip.
type Attempt struct {
	Kind       AttemptKind
	StatusCode int    // zero for transport failures
	Body       []byte // response body on success
	Err        error  // transport error (retryable) or *errors.APIError (permanent)
}

// RateLimited reports whether the attempt was answered with 429.
func (a Attempt) RateLimited() bool {
	return a.Kind == AttemptRetryable && a.StatusCode == http.StatusTooManyRequests
}

// Policy is the retry budget of a single request.
type Policy struct {
	MaxRetries int           // additional attempts after the first
	BaseDelay  time.Duration // delay before the first retry
}

// DefaultPolicy returns three retries starting at one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: constants.MaxRetries,
		BaseDelay:  constants.RetryBackoff,
	}
}

// Backoff returns the delay before retrying after the given zero-based attempt:
// base * 2^attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return base << uint(attempt)
}

// Sleeper waits for d, returning early with an error when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry calls try until it succeeds, fails permanently or the policy's retry
// budget is spent. The returned error is nil only for AttemptSuccess; after
// exhaustion it is *errors.RateLimitedError or *errors.NetworkError depending
// on the last failure.
func Retry(ctx context.Context, policy Policy, sleep Sleeper, endpoint string, logger *zerolog.Logger, try func(context.Context) Attempt) (Attempt, error) {
	if sleep == nil {
		sleep = SleepContext
	}
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	for attempt := 0; ; attempt++ {
		res := try(ctx)

		switch res.Kind {
		case AttemptSuccess:
			return res, nil
		case AttemptPermanent:
			return res, res.Err
		}

		if attempt >= policy.MaxRetries {
			if res.RateLimited() {
				return res, errors.NewRateLimitedError(endpoint, policy.MaxRetries)
			}
			return res, errors.NewNetworkError(endpoint, policy.MaxRetries, res.Err)
		}

		delay := Backoff(policy.BaseDelay, attempt)
		event := logger.Info().
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Dur("delay", delay)
		if res.RateLimited() {
			event.Msg("Rate limited, retrying")
		} else {
			event.Err(res.Err).Msg("Network error, retrying")
		}

		if err := sleep(ctx, delay); err != nil {
			return res, errors.NewNetworkError(endpoint, attempt, err)
		}
	}
}
