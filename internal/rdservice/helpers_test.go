package rdservice

import (
	"context"
	"net"
	"os"
	"sync"
	"syscall"
	"testing"
)

// refusedError builds the error a dial to a closed port produces
func refusedError() error {
	return &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}
}

func transportError(t *testing.T, class ErrorClass) *DeviceError {
	t.Helper()

	var cause error
	switch class {
	case ClassConnectionRefused:
		cause = refusedError()
	case ClassTimeout:
		cause = context.DeadlineExceeded
	case ClassHostNotFound:
		cause = &net.DNSError{Name: "rd.invalid", Err: "no such host", IsNotFound: true}
	case ClassHostUnreachable:
		cause = &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.EHOSTUNREACH}}
	default:
		t.Fatalf("no fixture for class %s", class)
	}

	err := NewTransportError("test request failed", "127.0.0.1:11100", cause)
	if err.Class != class {
		t.Fatalf("fixture class = %s, want %s", err.Class, class)
	}
	return err
}

type sentRequest struct {
	Endpoint Endpoint
	Request  Request
}

// fakeSender answers requests from a handler and records every call
type fakeSender struct {
	mu      sync.Mutex
	calls   []sentRequest
	handler func(ep Endpoint, req Request) (*Response, error)
}

func (f *fakeSender) Send(_ context.Context, ep Endpoint, req Request) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sentRequest{Endpoint: ep, Request: req})
	f.mu.Unlock()
	return f.handler(ep, req)
}

func (f *fakeSender) Calls() []sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRequest(nil), f.calls...)
}

func respond(status int, body string) *Response {
	return &Response{StatusCode: status, Body: body}
}

const sampleInfoBody = `<RDService status="READY" info="Vendor RD Service">` +
	`<Interface id="DEVICEINFO" path="/rd/info"/>` +
	`<Info><Param name="dpId" value="VENDOR.DP"/><Param name="rdsId" value="VENDOR.WIN.001"/>` +
	`<Param name="srno" value="1234567"/></Info></RDService>`
