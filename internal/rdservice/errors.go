package rdservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind represents the layer at which a bridge operation failed
type ErrorKind int

const (
	// ErrKindTransport indicates the request never produced a response
	ErrKindTransport ErrorKind = iota
	// ErrKindHTTP indicates the daemon answered with a non-200 status
	ErrKindHTTP
	// ErrKindParse indicates the response body could not be parsed
	ErrKindParse
	// ErrKindPolicy indicates the call was rejected before reaching the network
	ErrKindPolicy
	// ErrKindCanceled indicates the caller canceled the operation
	ErrKindCanceled
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindTransport:
		return "Transport Error"
	case ErrKindHTTP:
		return "HTTP Error"
	case ErrKindParse:
		return "Parse Error"
	case ErrKindPolicy:
		return "Policy Error"
	case ErrKindCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// ErrorClass classifies a transport failure. Each class maps to a fixed
// troubleshooting list (see Troubleshooting).
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassConnectionRefused
	ClassTimeout
	ClassHostUnreachable
	ClassHostNotFound
)

// String returns the wire name of the class, as reported to callers
func (c ErrorClass) String() string {
	switch c {
	case ClassConnectionRefused:
		return "ConnectionRefused"
	case ClassTimeout:
		return "Timeout"
	case ClassHostUnreachable:
		return "HostUnreachable"
	case ClassHostNotFound:
		return "HostNotFound"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so classes render by name in JSON
func (c ErrorClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// PolicyReason says why local policy rejected a call
type PolicyReason int

const (
	PolicyOther PolicyReason = iota
	PolicyRemoteHost
	PolicyInvalidPort
)

// DeviceError represents an error that occurred while talking to the RD service
type DeviceError struct {
	Kind       ErrorKind  // Layer that failed
	Class      ErrorClass // Transport classification (ClassUnknown for non-transport kinds)
	Message    string     // Human-readable error message
	StatusCode int        // HTTP status code (if applicable)
	Endpoint   string     // host:port the call was aimed at
	Err        error      // Underlying error (if any)
	Retryable  bool       // Whether the Retry Controller may try again
	Policy     PolicyReason
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a classified DeviceError
func ClassifyNetworkError(err error, endpoint string) *DeviceError {
	if err == nil {
		return nil
	}

	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr
	}

	if errors.Is(err, context.Canceled) {
		return &DeviceError{
			Kind:     ErrKindCanceled,
			Class:    ClassUnknown,
			Message:  "Request canceled by caller",
			Err:      err,
			Endpoint: endpoint,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &DeviceError{
			Kind:      ErrKindTransport,
			Class:     ClassTimeout,
			Message:   "RD service did not respond in time",
			Err:       err,
			Endpoint:  endpoint,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Kind:      ErrKindTransport,
			Class:     ClassHostNotFound,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Endpoint:  endpoint,
			Retryable: false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &DeviceError{
				Kind:      ErrKindTransport,
				Class:     ClassConnectionRefused,
				Message:   "RD service refused connection",
				Err:       err,
				Endpoint:  endpoint,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH), errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &DeviceError{
				Kind:      ErrKindTransport,
				Class:     ClassHostUnreachable,
				Message:   "Host unreachable",
				Err:       err,
				Endpoint:  endpoint,
				Retryable: true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err, endpoint)
	}

	// Refusals sometimes surface without an OpError wrapper
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &DeviceError{
			Kind:      ErrKindTransport,
			Class:     ClassConnectionRefused,
			Message:   "RD service refused connection",
			Err:       err,
			Endpoint:  endpoint,
			Retryable: true,
		}
	}

	return &DeviceError{
		Kind:      ErrKindTransport,
		Class:     ClassUnknown,
		Message:   "Network error occurred",
		Err:       err,
		Endpoint:  endpoint,
		Retryable: true,
	}
}

// NewTransportError creates a transport-level error with automatic classification
func NewTransportError(message, endpoint string, err error) *DeviceError {
	classified := ClassifyNetworkError(err, endpoint)
	classified.Message = message
	return classified
}

// NewHTTPError creates an error for a non-200 response
func NewHTTPError(statusCode int, endpoint, message string) *DeviceError {
	return &DeviceError{
		Kind:       ErrKindHTTP,
		Message:    message,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{
		Kind:    ErrKindParse,
		Message: message,
		Err:     err,
	}
}

// NewPolicyError creates an error for a call rejected by local policy
func NewPolicyError(message string) *DeviceError {
	return &DeviceError{
		Kind:    ErrKindPolicy,
		Message: message,
	}
}

// NewRemoteHostError rejects a non-loopback host when remote access is off
func NewRemoteHostError(host string) *DeviceError {
	err := NewPolicyError(fmt.Sprintf("remote RD service host %q is not allowed", host))
	err.Policy = PolicyRemoteHost
	return err
}

// NewInvalidPortError rejects a port outside 1-65535
func NewInvalidPortError(port int) *DeviceError {
	err := NewPolicyError(fmt.Sprintf("port must be 1-65535, got %d", port))
	err.Policy = PolicyInvalidPort
	return err
}

// ClassOf returns the transport class of err, or ClassUnknown
func ClassOf(err error) ErrorClass {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Class
	}
	return ClassUnknown
}

// IsTransportError checks if an error happened before any response was received
func IsTransportError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Kind == ErrKindTransport
}

// IsHTTPError checks if an error is a non-200 response
func IsHTTPError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Kind == ErrKindHTTP
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Kind == ErrKindParse
}

// IsPolicyError checks if an error is a local policy rejection
func IsPolicyError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Kind == ErrKindPolicy
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Retryable
	}
	// Unclassified errors are treated as transient, except caller cancellation
	return !errors.Is(err, context.Canceled)
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Kind {
	case ErrKindTransport:
		switch devErr.Class {
		case ClassConnectionRefused:
			return "RD service not running (connection refused)"
		case ClassTimeout:
			return "RD service not responding (timeout)"
		case ClassHostUnreachable:
			return "RD service host unreachable"
		case ClassHostNotFound:
			return "Cannot resolve RD service host"
		default:
			return "Network error talking to RD service"
		}
	case ErrKindHTTP:
		return fmt.Sprintf("RD service error (HTTP %d)", devErr.StatusCode)
	case ErrKindParse:
		return "Failed to parse RD service response"
	case ErrKindCanceled:
		return "Request canceled"
	default:
		return devErr.Message
	}
}
