package rdservice

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/rdbridge/internal/logging"
	"github.com/muurk/rdbridge/internal/metrics"
)

// CaptureState is a step of the capture state machine
type CaptureState int

const (
	CaptureIdle CaptureState = iota
	CaptureAttemptPrimary
	CaptureAttemptFallback
	CaptureSuccess
	CaptureFailed
)

// String returns a human-readable name for the state
func (s CaptureState) String() string {
	switch s {
	case CaptureIdle:
		return "Idle"
	case CaptureAttemptPrimary:
		return "AttemptPrimary"
	case CaptureAttemptFallback:
		return "AttemptFallback"
	case CaptureSuccess:
		return "Success"
	case CaptureFailed:
		return "Failed"
	default:
		return fmt.Sprintf("CaptureState(%d)", s)
	}
}

// Sender issues one request. *Client satisfies it.
type Sender interface {
	Send(ctx context.Context, ep Endpoint, req Request) (*Response, error)
}

// CaptureOutcome is the unified result of a capture. Verb is the verb that
// produced Response: the successful one, or the fallback when both failed.
type CaptureOutcome struct {
	Verb         string       `json:"verb"`
	UsedFallback bool         `json:"fallback"`
	Success      bool         `json:"success"`
	State        CaptureState `json:"-"`
	Response     *Response    `json:"response,omitempty"`
	PrimaryErr   error        `json:"-"`
	Err          error        `json:"-"`
}

// Capturer drives the two-verb capture protocol. The primary/fallback pair
// is its only resilience layer; no retry policy wraps it.
type Capturer struct {
	Sender Sender

	// OnState is called on every state transition (optional)
	OnState func(CaptureState)
}

// NewCapturer creates a capture orchestrator over sender
func NewCapturer(sender Sender) *Capturer {
	return &Capturer{Sender: sender}
}

func (c *Capturer) transition(outcome *CaptureOutcome, state CaptureState) {
	outcome.State = state
	if c.OnState != nil {
		c.OnState(state)
	}
}

// Capture sends payload with CaptureVerb and, when that fails or answers
// non-200, resends it unchanged with FallbackVerb.
func (c *Capturer) Capture(ctx context.Context, ep Endpoint, payload string) *CaptureOutcome {
	if ep.Timeout == 0 {
		ep.Timeout = DefaultCaptureTimeout
	}

	outcome := &CaptureOutcome{}
	c.transition(outcome, CaptureIdle)

	c.transition(outcome, CaptureAttemptPrimary)
	primary := CaptureRequest(payload)
	resp, err := c.Sender.Send(ctx, ep, primary)
	if err == nil && resp.OK() {
		outcome.Verb = primary.Verb
		outcome.Response = resp
		outcome.Success = true
		c.transition(outcome, CaptureSuccess)
		return outcome
	}
	if err == nil {
		err = NewHTTPError(resp.StatusCode, ep.Address(),
			fmt.Sprintf("%s returned status %d", primary.Verb, resp.StatusCode))
	}
	outcome.PrimaryErr = err

	if IsCanceled(err) {
		outcome.Verb = primary.Verb
		outcome.Response = resp
		outcome.Err = err
		c.transition(outcome, CaptureFailed)
		return outcome
	}

	logging.Info("Primary capture verb failed, trying fallback",
		zap.String("endpoint", ep.Address()),
		zap.String("verb", primary.Verb),
		zap.String("fallback", FallbackVerb),
		zap.Error(err),
	)
	metrics.CaptureFallbacksTotal.Inc()

	c.transition(outcome, CaptureAttemptFallback)
	fallback := Request{Verb: FallbackVerb, Path: primary.Path, Body: primary.Body}
	resp, err = c.Sender.Send(ctx, ep, fallback)

	outcome.Verb = fallback.Verb
	outcome.UsedFallback = true
	outcome.Response = resp
	if err == nil && resp.OK() {
		outcome.Success = true
		c.transition(outcome, CaptureSuccess)
		return outcome
	}
	if err == nil {
		err = NewHTTPError(resp.StatusCode, ep.Address(),
			fmt.Sprintf("%s returned status %d", fallback.Verb, resp.StatusCode))
	}
	outcome.Err = err
	c.transition(outcome, CaptureFailed)
	return outcome
}

// IsCanceled checks if an error came from caller cancellation
func IsCanceled(err error) bool {
	devErr := ClassifyNetworkError(err, "")
	return devErr != nil && devErr.Kind == ErrKindCanceled
}
