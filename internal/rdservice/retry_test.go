package rdservice

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) Sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestRetrier(attempts int) (*Retrier, *recordingSleep) {
	rec := &recordingSleep{}
	r := NewRetrier(RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Second, MaxDelay: 5 * time.Second})
	r.Sleep = rec.Sleep
	return r, rec
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{40, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicy_Validate(t *testing.T) {
	if err := DefaultRetryPolicy().Validate(); err != nil {
		t.Errorf("DefaultRetryPolicy().Validate() error = %v", err)
	}
	if err := (RetryPolicy{MaxAttempts: 0}).Validate(); err == nil {
		t.Error("zero attempts should be invalid")
	}
	if err := (RetryPolicy{MaxAttempts: 1, BaseDelay: 2 * time.Second, MaxDelay: time.Second}).Validate(); err == nil {
		t.Error("max delay below base delay should be invalid")
	}
}

func TestWithRetry_TimeoutsThenSuccess(t *testing.T) {
	r, rec := newTestRetrier(3)
	timeout := transportError(t, ClassTimeout)

	calls := 0
	got, err := WithRetry(context.Background(), r, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", timeout
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("WithRetry() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("WithRetry() = %q, want ok", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if !reflect.DeepEqual(rec.delays, want) {
		t.Errorf("delays = %v, want %v", rec.delays, want)
	}
}

func TestWithRetry_RefusedOnFinalAttempt(t *testing.T) {
	r, rec := newTestRetrier(3)
	refused := transportError(t, ClassConnectionRefused)

	calls := 0
	_, err := WithRetry(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, refused
	})

	if ClassOf(err) != ClassConnectionRefused {
		t.Errorf("error class = %v, want ConnectionRefused", ClassOf(err))
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(rec.delays) != 2 {
		t.Errorf("delays = %v, want exactly 2 (none after the final attempt)", rec.delays)
	}
}

func TestWithRetry_SingleAttempt(t *testing.T) {
	r, rec := newTestRetrier(1)

	calls := 0
	_, err := WithRetry(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, transportError(t, ClassConnectionRefused)
	})

	if err == nil || calls != 1 || len(rec.delays) != 0 {
		t.Errorf("err=%v calls=%d delays=%v, want one failed attempt and no sleep", err, calls, rec.delays)
	}
}

func TestWithRetry_NonRetryableStops(t *testing.T) {
	tests := []struct {
		name string
		err  func(t *testing.T) error
	}{
		{"host not found", func(t *testing.T) error { return transportError(t, ClassHostNotFound) }},
		{"parse error", func(*testing.T) error { return NewParseError("bad", nil) }},
		{"client error status", func(*testing.T) error { return NewHTTPError(404, "", "missing") }},
		{"caller canceled", func(*testing.T) error { return context.Canceled }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec := newTestRetrier(3)
			failure := tt.err(t)

			calls := 0
			_, err := WithRetry(context.Background(), r, func(context.Context) (int, error) {
				calls++
				return 0, failure
			})

			if !errors.Is(err, failure) {
				t.Errorf("error = %v, want %v", err, failure)
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
			if len(rec.delays) != 0 {
				t.Errorf("delays = %v, want none", rec.delays)
			}
		})
	}
}

func TestWithRetry_UnclassifiedErrorIsRetried(t *testing.T) {
	r, rec := newTestRetrier(3)

	calls := 0
	got, err := WithRetry(context.Background(), r, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("boom")
		}
		return "done", nil
	})

	if err != nil || got != "done" {
		t.Fatalf("WithRetry() = %q, %v, want done", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !reflect.DeepEqual(rec.delays, want) {
		t.Errorf("delays = %v, want %v", rec.delays, want)
	}
}

func TestWithRetry_ServerErrorIsRetried(t *testing.T) {
	r, _ := newTestRetrier(2)

	calls := 0
	resp, err := WithRetry(context.Background(), r, func(context.Context) (*Response, error) {
		calls++
		return respond(500, "busy"), NewHTTPError(500, "", "busy")
	})

	if !IsHTTPError(err) {
		t.Errorf("error = %v, want HTTP error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if resp == nil || resp.StatusCode != 500 {
		t.Errorf("last response should be returned, got %+v", resp)
	}
}

func TestWithRetry_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRetrier(DefaultRetryPolicy())
	r.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	calls := 0
	_, err := WithRetry(ctx, r, func(context.Context) (int, error) {
		calls++
		return 0, transportError(t, ClassTimeout)
	})

	if !IsCanceled(err) {
		t.Errorf("error = %v, want canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("sleepContext(0) error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() on canceled ctx = %v, want context.Canceled", err)
	}
}
