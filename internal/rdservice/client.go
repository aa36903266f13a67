package rdservice

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/rdbridge/internal/logging"
	"github.com/muurk/rdbridge/internal/metrics"
)

const (
	// DefaultScheme is the scheme the RD service is reached on
	DefaultScheme = "https"

	// DefaultAuthHeader carries the optional auth key as a bearer token
	DefaultAuthHeader = "Authorization"

	// ContentTypeXML is sent with every request
	ContentTypeXML = "text/xml"

	// maxBodyBytes caps how much of a response body is read
	maxBodyBytes = 4 << 20
)

// Client issues single requests against an RD service. It holds no
// connection state: every Send opens and closes its own connection.
type Client struct {
	// Scheme is "https" (default) or "http"
	Scheme string

	// AuthHeader is the header used to forward Endpoint.AuthKey.
	// "Authorization" sends "Bearer <key>"; any other header sends the key as-is.
	AuthHeader string
}

// NewClient creates a transport client with default settings
func NewClient() *Client {
	return &Client{
		Scheme:     DefaultScheme,
		AuthHeader: DefaultAuthHeader,
	}
}

// newTransport builds a private, single-use transport. Certificate
// verification is relaxed here only: the daemon is loopback-only and
// self-signed. Nothing else in the process shares this transport.
func newTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1,
	}
	return &http.Transport{
		Proxy:       nil,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // self-signed loopback daemon
			MinVersion:         tls.VersionTLS12,
		},
		DisableKeepAlives:   true,
		MaxIdleConns:        0,
		TLSHandshakeTimeout: timeout,
	}
}

// Send performs exactly one attempt of req against ep. The endpoint timeout
// bounds the whole attempt including reading the body. Send never retries.
func (c *Client) Send(ctx context.Context, ep Endpoint, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	scheme := c.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	target := url.URL{Scheme: scheme, Host: ep.Address(), Path: req.Path}

	var body io.Reader = http.NoBody
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Verb, target.String(), body)
	if err != nil {
		return nil, NewPolicyError(fmt.Sprintf("invalid %s request to %s: %v", req.Verb, target.String(), err))
	}
	httpReq.Host = ep.Address()
	httpReq.Header.Set("Content-Type", ContentTypeXML)
	if ep.AuthKey != "" {
		c.setAuth(httpReq.Header, ep.AuthKey)
	}

	logging.LogDeviceRequest(ep.Address(), req.Verb, req.Path, len(req.Body))

	transport := newTransport(ep.Timeout)
	defer transport.CloseIdleConnections()
	httpClient := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	start := time.Now()
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		devErr := NewTransportError(fmt.Sprintf("%s %s failed", req.Verb, req.Path), ep.Address(), err)
		metrics.ObserveRequest(req.Verb, devErr.Class.String(), time.Since(start))
		logging.Debug("RD service request failed",
			zap.String("endpoint", ep.Address()),
			zap.String("verb", req.Verb),
			zap.String("class", devErr.Class.String()),
			zap.Error(err),
		)
		return nil, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		devErr := NewTransportError("failed to read response body", ep.Address(), err)
		metrics.ObserveRequest(req.Verb, devErr.Class.String(), time.Since(start))
		return nil, devErr
	}
	if len(data) > maxBodyBytes {
		metrics.ObserveRequest(req.Verb, "too_large", time.Since(start))
		devErr := NewParseError(fmt.Sprintf("%s %s response exceeds %d bytes", req.Verb, req.Path, maxBodyBytes), nil)
		devErr.StatusCode = resp.StatusCode
		devErr.Endpoint = ep.Address()
		return nil, devErr
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       string(data),
	}

	outcome := "ok"
	if !result.OK() {
		outcome = "http_error"
	}
	metrics.ObserveRequest(req.Verb, outcome, time.Since(start))
	logging.LogDeviceResponse(ep.Address(), req.Verb, resp.StatusCode, len(data))
	// Capture bodies carry biometric data and are never dumped
	if req.Path != CapturePath {
		logging.LogRawBytes("RD service response body", data)
	}

	return result, nil
}

func (c *Client) setAuth(h http.Header, key string) {
	header := c.AuthHeader
	if header == "" {
		header = DefaultAuthHeader
	}
	if strings.EqualFold(header, DefaultAuthHeader) {
		h.Set(header, "Bearer "+key)
		return
	}
	h.Set(header, key)
}

// DeviceInfo retrieves and parses the device-info envelope through c.
func (c *Client) DeviceInfo(ctx context.Context, ep Endpoint, retrier *Retrier) (*Response, *Info, error) {
	return FetchDeviceInfo(ctx, c, ep, retrier)
}

// FetchDeviceInfo sends the device-info verb through sender, wrapped in the
// Retry Controller. Unlike capture it has no verb fallback. A nil retrier
// uses DefaultRetryPolicy.
func FetchDeviceInfo(ctx context.Context, sender Sender, ep Endpoint, retrier *Retrier) (*Response, *Info, error) {
	if ep.Timeout == 0 {
		ep.Timeout = DefaultInfoTimeout
	}
	if retrier == nil {
		retrier = NewRetrier(DefaultRetryPolicy())
	}

	resp, err := WithRetry(ctx, retrier, func(ctx context.Context) (*Response, error) {
		resp, err := sender.Send(ctx, ep, DeviceInfoRequest())
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return resp, NewHTTPError(resp.StatusCode, ep.Address(),
				fmt.Sprintf("device info returned status %d", resp.StatusCode))
		}
		return resp, nil
	})
	if err != nil {
		return resp, nil, err
	}

	info, err := ParseInfo(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, info, nil
}
