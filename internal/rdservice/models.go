package rdservice

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultHost is the loopback address the RD service listens on
	DefaultHost = "127.0.0.1"

	// DefaultPort is the well-known RD service port
	DefaultPort = 11100

	// DiscoveryVerb is the request method used to confirm the daemon is present
	DiscoveryVerb = "RDSERVICE"

	// DeviceInfoVerb is the request method for the device-info operation
	DeviceInfoVerb = "DEVICEINFO"

	// CaptureVerb is the primary request method for a biometric capture
	CaptureVerb = "CAPTURE"

	// FallbackVerb is the generic method retried when CaptureVerb fails
	FallbackVerb = http.MethodPost

	// DiscoveryPath, DeviceInfoPath and CapturePath are the fixed RD service paths
	DiscoveryPath  = "/"
	DeviceInfoPath = "/rd/info"
	CapturePath    = "/rd/capture"

	// ServiceMarker is the open tag that identifies an RD service discovery body
	ServiceMarker = "<RDService"

	// DefaultDiscoveryTimeout gates UI readiness, so it stays short
	DefaultDiscoveryTimeout = 2 * time.Second

	// DefaultInfoTimeout is the per-attempt timeout for device-info
	DefaultInfoTimeout = 5 * time.Second

	// DefaultCaptureTimeout covers a live finger presentation
	DefaultCaptureTimeout = 20 * time.Second
)

// Endpoint identifies where to send a request. It is built per call and
// never persisted.
type Endpoint struct {
	Host    string
	Port    int
	AuthKey string        // Optional token forwarded to the daemon
	Timeout time.Duration // Bounds connect + response for one attempt
}

// Address returns host:port
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// WithTimeout returns a copy of the endpoint with a different timeout
func (e Endpoint) WithTimeout(timeout time.Duration) Endpoint {
	e.Timeout = timeout
	return e
}

// WithPort returns a copy of the endpoint aimed at a different port
func (e Endpoint) WithPort(port int) Endpoint {
	e.Port = port
	return e
}

// String implements fmt.Stringer
func (e Endpoint) String() string {
	return e.Address()
}

// Request describes one logical operation against the daemon
type Request struct {
	Verb string
	Path string
	Body string // Empty means no body (Content-Length: 0)
}

// DiscoveryRequest returns the request used to probe for the daemon
func DiscoveryRequest() Request {
	return Request{Verb: DiscoveryVerb, Path: DiscoveryPath}
}

// DeviceInfoRequest returns the device-info request
func DeviceInfoRequest() Request {
	return Request{Verb: DeviceInfoVerb, Path: DeviceInfoPath}
}

// CaptureRequest returns the primary capture request for a PidOptions payload
func CaptureRequest(payload string) Request {
	return Request{Verb: CaptureVerb, Path: CapturePath, Body: payload}
}

// Response is the result of one transport attempt. It is not modified after
// Send returns.
type Response struct {
	StatusCode int         `json:"statusCode"`
	Header     http.Header `json:"headers,omitempty"`
	Body       string      `json:"body"`
}

// OK reports whether the daemon answered with status 200
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// RetryPolicy bounds the Retry Controller
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts" json:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"baseDelay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"maxDelay"`
}

// DefaultRetryPolicy returns the policy used for device-info calls
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    5 * time.Second,
	}
}

// Validate checks that the policy can be executed
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("retry policy: delays must not be negative")
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("retry policy: max delay %v is below base delay %v", p.MaxDelay, p.BaseDelay)
	}
	return nil
}

// Delay returns the backoff before the attempt following attempt (1-based):
// min(BaseDelay * 2^(attempt-1), MaxDelay).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay || delay <= 0 {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
