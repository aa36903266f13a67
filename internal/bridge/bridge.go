// Package bridge is the caller-facing surface of the RD service client. It
// resolves endpoints from configuration, runs the rdservice components and
// decides, on the caller's explicit request, when a mock response may stand
// in for the real device. Every Result records whether it came from a mock.
package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/rdbridge/internal/config"
	"github.com/muurk/rdbridge/internal/logging"
	"github.com/muurk/rdbridge/internal/metrics"
	"github.com/muurk/rdbridge/internal/rdservice"
)

// Bridge runs RD service operations for callers. It holds configuration and
// stateless collaborators only, so one Bridge may serve concurrent calls.
type Bridge struct {
	settings *config.Settings
	resolver *Resolver
	sender   rdservice.Sender
	retrier  *rdservice.Retrier
	mock     rdservice.MockResponder
}

// Option customizes a Bridge
type Option func(*Bridge)

// WithSender replaces the transport used by discovery, capture and health
func WithSender(sender rdservice.Sender) Option {
	return func(b *Bridge) { b.sender = sender }
}

// WithRetrier replaces the retry controller used for device-info
func WithRetrier(retrier *rdservice.Retrier) Option {
	return func(b *Bridge) { b.retrier = retrier }
}

// WithMockResponder replaces the mock responder
func WithMockResponder(mock rdservice.MockResponder) Option {
	return func(b *Bridge) { b.mock = mock }
}

// New creates a Bridge for settings
func New(settings *config.Settings, opts ...Option) *Bridge {
	client := rdservice.NewClient()
	client.Scheme = settings.Scheme()
	if settings.Service.AuthHeader != "" {
		client.AuthHeader = settings.Service.AuthHeader
	}

	b := &Bridge{
		settings: settings,
		resolver: &Resolver{Settings: settings},
		sender:   client,
		retrier:  rdservice.NewRetrier(settings.Retry),
		mock:     rdservice.NewMockResponder(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Settings returns the configuration the bridge runs with
func (b *Bridge) Settings() *config.Settings {
	return b.settings
}

// Resolve returns the endpoint target would be sent to
func (b *Bridge) Resolve(target Target) (rdservice.Endpoint, error) {
	return b.resolver.Resolve(target, b.settings.Timeouts.Discovery)
}

// Discover reports whether an RD service answers at target.
func (b *Bridge) Discover(ctx context.Context, target Target) *Result {
	ep, err := b.resolver.Resolve(target, b.settings.Timeouts.Discovery)
	if err != nil {
		return failure(OpDiscover, ep, err)
	}
	if b.settings.Mock.DevMode {
		return b.mockResult(OpDiscover, ep, b.mock.Info(), "development mode")
	}

	prober := rdservice.NewProber(b.sender)
	var discovery *rdservice.Discovery
	if target.Scan && target.Port == 0 && len(b.settings.Service.DiscoveryPorts) > 0 {
		discovery, err = prober.Scan(ctx, ep, b.settings.Service.DiscoveryPorts)
	} else {
		discovery, err = prober.Discover(ctx, ep)
	}

	if err != nil {
		return b.orMock(target, OpDiscover, ep, failure(OpDiscover, ep, err), b.mock.Info)
	}
	if !discovery.Found {
		result := &Result{
			OK:        false,
			Operation: OpDiscover,
			Endpoint:  ep.WithPort(discovery.Port).Address(),
			Port:      discovery.Port,
			Message:   fmt.Sprintf("no RD service found at %s", ep.WithPort(discovery.Port).Address()),
			Result:    discovery.Response,
		}
		return b.orMock(target, OpDiscover, ep, result, b.mock.Info)
	}

	return &Result{
		OK:        true,
		Operation: OpDiscover,
		Endpoint:  ep.WithPort(discovery.Port).Address(),
		Port:      discovery.Port,
		Info:      discovery.Info,
		Result:    discovery.Response,
	}
}

// DeviceInfo fetches the device-info envelope, with retries.
func (b *Bridge) DeviceInfo(ctx context.Context, target Target) *Result {
	ep, err := b.resolver.Resolve(target, b.settings.Timeouts.Info)
	if err != nil {
		return failure(OpDeviceInfo, ep, err)
	}
	if b.settings.Mock.DevMode {
		return b.mockResult(OpDeviceInfo, ep, b.mock.Info(), "development mode")
	}

	resp, info, err := rdservice.FetchDeviceInfo(ctx, b.sender, ep, b.retrier)
	if err != nil {
		result := failure(OpDeviceInfo, ep, err)
		result.Result = resp
		return b.orMock(target, OpDeviceInfo, ep, result, b.mock.Info)
	}

	return &Result{
		OK:        true,
		Operation: OpDeviceInfo,
		Endpoint:  ep.Address(),
		Port:      ep.Port,
		Info:      info,
		Result:    resp,
	}
}

// Capture runs the primary/fallback capture protocol with payload.
func (b *Bridge) Capture(ctx context.Context, target Target, payload string) *Result {
	ep, err := b.resolver.Resolve(target, b.settings.Timeouts.Capture)
	if err != nil {
		return failure(OpCapture, ep, err)
	}
	if b.settings.Mock.DevMode {
		return b.mockResult(OpCapture, ep, b.mock.Capture(), "development mode")
	}

	outcome := rdservice.NewCapturer(b.sender).Capture(ctx, ep, payload)
	if !outcome.Success {
		result := failure(OpCapture, ep, outcome.Err)
		result.Verb = outcome.Verb
		result.Fallback = outcome.UsedFallback
		result.Result = outcome.Response
		return b.orMock(target, OpCapture, ep, result, b.mock.Capture)
	}

	result := &Result{
		OK:        true,
		Operation: OpCapture,
		Endpoint:  ep.Address(),
		Port:      ep.Port,
		Verb:      outcome.Verb,
		Fallback:  outcome.UsedFallback,
		Result:    outcome.Response,
	}
	if status, err := rdservice.ParseCaptureStatus(outcome.Response.Body); err == nil {
		result.Capture = status
	} else {
		logging.Warn("Capture payload could not be summarized", zap.Error(err))
	}
	return result
}

// Health runs the health diagnostics against target. Resolution failures
// are reported as an unhealthy report.
func (b *Bridge) Health(ctx context.Context, target Target) *rdservice.HealthReport {
	ep, err := b.resolver.Resolve(target, b.settings.Timeouts.Discovery)
	if err != nil {
		return rdservice.RejectedReport(ep, err)
	}
	return rdservice.NewHealthChecker(b.sender).Check(ctx, ep)
}

// orMock swaps failed for a mock result when the caller asked for it and
// settings permit it. Canceled calls and policy rejections are never mocked.
func (b *Bridge) orMock(target Target, op string, ep rdservice.Endpoint, failed *Result, produce func() *rdservice.Response) *Result {
	if !target.MockOnFailure || !b.settings.MockPermitted() {
		return failed
	}
	if failed.Err != nil && (rdservice.IsCanceled(failed.Err) || rdservice.IsPolicyError(failed.Err)) {
		return failed
	}

	result := b.mockResult(op, ep, produce(), failed.Message)
	result.ErrorClass = failed.ErrorClass
	return result
}

func (b *Bridge) mockResult(op string, ep rdservice.Endpoint, resp *rdservice.Response, reason string) *Result {
	metrics.MockResponsesTotal.WithLabelValues(op).Inc()
	logging.LogMockSubstitution(op, reason)

	result := &Result{
		OK:        true,
		Mock:      true,
		Operation: op,
		Endpoint:  ep.Address(),
		Port:      ep.Port,
		Message:   "mock response: " + reason,
		Result:    resp,
	}
	switch op {
	case OpCapture:
		result.Verb = rdservice.CaptureVerb
		result.Capture, _ = rdservice.ParseCaptureStatus(resp.Body)
	default:
		result.Info, _ = rdservice.ParseInfo(resp.Body)
	}
	return result
}
