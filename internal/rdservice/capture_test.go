package rdservice

import (
	"context"
	"net/http"
	"reflect"
	"testing"
)

const samplePidData = `<PidData><Resp errCode="0" errInfo="Success"/></PidData>`

func TestCapture_PrimarySucceeds(t *testing.T) {
	sender := &fakeSender{handler: func(Endpoint, Request) (*Response, error) {
		return respond(http.StatusOK, samplePidData), nil
	}}

	var states []CaptureState
	c := NewCapturer(sender)
	c.OnState = func(s CaptureState) { states = append(states, s) }

	outcome := c.Capture(context.Background(), Endpoint{Host: DefaultHost, Port: DefaultPort}, "<PidOptions/>")

	if !outcome.Success || outcome.UsedFallback {
		t.Errorf("outcome = %+v, want primary success", outcome)
	}
	if outcome.Verb != CaptureVerb {
		t.Errorf("Verb = %s, want %s", outcome.Verb, CaptureVerb)
	}
	if len(sender.Calls()) != 1 {
		t.Errorf("calls = %d, want 1", len(sender.Calls()))
	}

	want := []CaptureState{CaptureIdle, CaptureAttemptPrimary, CaptureSuccess}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}

func TestCapture_FallbackAfterTransportError(t *testing.T) {
	sender := &fakeSender{handler: func(_ Endpoint, req Request) (*Response, error) {
		if req.Verb == CaptureVerb {
			return nil, transportError(t, ClassConnectionRefused)
		}
		return respond(http.StatusOK, samplePidData), nil
	}}

	outcome := NewCapturer(sender).Capture(context.Background(), Endpoint{Host: DefaultHost, Port: DefaultPort}, "<PidOptions/>")

	if !outcome.Success {
		t.Fatalf("outcome = %+v, want success", outcome)
	}
	if outcome.Verb != FallbackVerb || !outcome.UsedFallback {
		t.Errorf("Verb = %s fallback = %v, want %s via fallback", outcome.Verb, outcome.UsedFallback, FallbackVerb)
	}
	if ClassOf(outcome.PrimaryErr) != ClassConnectionRefused {
		t.Errorf("PrimaryErr = %v, want the primary failure", outcome.PrimaryErr)
	}

	calls := sender.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].Request.Body != calls[1].Request.Body || calls[1].Request.Path != CapturePath {
		t.Error("fallback should resend the same payload to the capture path")
	}
	if calls[0].Endpoint.Timeout != DefaultCaptureTimeout {
		t.Errorf("Timeout = %v, want %v", calls[0].Endpoint.Timeout, DefaultCaptureTimeout)
	}
}

func TestCapture_FallbackAfterNonOK(t *testing.T) {
	sender := &fakeSender{handler: func(_ Endpoint, req Request) (*Response, error) {
		if req.Verb == CaptureVerb {
			return respond(http.StatusMethodNotAllowed, ""), nil
		}
		return respond(http.StatusOK, samplePidData), nil
	}}

	outcome := NewCapturer(sender).Capture(context.Background(), Endpoint{Host: DefaultHost, Port: DefaultPort}, "x")

	if !outcome.Success || outcome.Verb != FallbackVerb {
		t.Errorf("outcome = %+v, want fallback success", outcome)
	}
	if !IsHTTPError(outcome.PrimaryErr) {
		t.Errorf("PrimaryErr = %v, want HTTP error", outcome.PrimaryErr)
	}
}

func TestCapture_BothFail(t *testing.T) {
	sender := &fakeSender{handler: func(_ Endpoint, req Request) (*Response, error) {
		if req.Verb == CaptureVerb {
			return nil, transportError(t, ClassTimeout)
		}
		return respond(http.StatusInternalServerError, "fallback broke"), nil
	}}

	var states []CaptureState
	c := NewCapturer(sender)
	c.OnState = func(s CaptureState) { states = append(states, s) }
	outcome := c.Capture(context.Background(), Endpoint{Host: DefaultHost, Port: DefaultPort}, "x")

	if outcome.Success {
		t.Fatal("outcome should fail")
	}
	if outcome.Verb != FallbackVerb {
		t.Errorf("Verb = %s, want the fallback verb", outcome.Verb)
	}
	if !IsHTTPError(outcome.Err) {
		t.Errorf("Err = %v, want the fallback's HTTP error", outcome.Err)
	}
	if outcome.Response == nil || outcome.Response.Body != "fallback broke" {
		t.Errorf("Response = %+v, want the fallback response", outcome.Response)
	}

	want := []CaptureState{CaptureIdle, CaptureAttemptPrimary, CaptureAttemptFallback, CaptureFailed}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}

func TestCapture_CanceledSkipsFallback(t *testing.T) {
	sender := &fakeSender{handler: func(Endpoint, Request) (*Response, error) {
		return nil, NewTransportError("canceled", "", context.Canceled)
	}}

	outcome := NewCapturer(sender).Capture(context.Background(), Endpoint{Host: DefaultHost, Port: DefaultPort}, "x")

	if outcome.Success || outcome.UsedFallback {
		t.Errorf("outcome = %+v, want failure without fallback", outcome)
	}
	if !IsCanceled(outcome.Err) {
		t.Errorf("Err = %v, want canceled", outcome.Err)
	}
	if len(sender.Calls()) != 1 {
		t.Errorf("calls = %d, want 1", len(sender.Calls()))
	}
}

func TestCaptureState_String(t *testing.T) {
	if CaptureAttemptFallback.String() != "AttemptFallback" {
		t.Errorf("String() = %s", CaptureAttemptFallback.String())
	}
	if CaptureState(42).String() != "CaptureState(42)" {
		t.Errorf("String() = %s", CaptureState(42).String())
	}
}
