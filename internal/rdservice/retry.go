package rdservice

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/rdbridge/internal/logging"
	"github.com/muurk/rdbridge/internal/metrics"
)

// SleepFunc suspends the calling goroutine for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier wraps a fallible operation with bounded retries and exponential
// backoff. It holds no per-call state and may be shared between goroutines.
type Retrier struct {
	Policy RetryPolicy

	// Sleep defaults to a context-aware timer
	Sleep SleepFunc
}

// NewRetrier creates a Retrier for policy
func NewRetrier(policy RetryPolicy) *Retrier {
	return &Retrier{
		Policy: policy,
		Sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithRetry runs op until it succeeds or the policy is exhausted.
//
// A ConnectionRefused failure on the final attempt ends the loop at once.
// Errors that are not retryable (name resolution, parse, policy, caller
// cancellation) also end it. Otherwise the controller sleeps
// policy.Delay(attempt) and tries again. The last value and error observed
// are returned on failure.
func WithRetry[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error)) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	policy := r.Policy
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var (
		last    T
		lastErr error
	)
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		last, lastErr = value, err

		class := ClassOf(err)
		final := attempt == policy.MaxAttempts

		if class == ClassConnectionRefused && final {
			logging.Debug("RD service refused connection on final attempt",
				zap.Int("attempt", attempt))
			break
		}
		if !IsRetryable(err) || final {
			break
		}

		delay := policy.Delay(attempt)
		metrics.RetriesTotal.WithLabelValues(class.String()).Inc()
		logging.LogRetry(attempt, policy.MaxAttempts, delay, err)

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return last, ClassifyNetworkError(sleepErr, "")
		}
	}

	return last, lastErr
}
