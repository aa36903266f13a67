// Package rdservice talks to a local biometric RD service daemon.
//
// The daemon answers a small set of non-standard HTTP verbs on a loopback
// port (11100 by default):
//
//   - RDSERVICE on "/" describes the service (discovery)
//   - DEVICEINFO on /rd/info returns the device-info envelope
//   - CAPTURE on /rd/capture takes a PID options document and returns
//     PidData; POST on the same path is the fallback verb
//
// # Components
//
// Client sends exactly one request per call over a private, single-use
// transport. It never retries and never shares connections. Transport
// failures come back as *DeviceError with an ErrorClass; a non-2xx status is
// a Response, not an error.
//
// Retrier and WithRetry wrap any operation with exponential backoff. They
// stop early on errors that will not heal by waiting.
//
// Capturer runs the primary/fallback capture protocol and records every
// state it passes through. Prober answers "is an RD service here" for one
// port or a range of ports. HealthChecker turns a probe into a HealthReport
// with troubleshooting tips per error class.
//
// StaticMock fabricates schema-valid responses for development. Callers
// decide when a mock may stand in for the device; nothing in this package
// substitutes one on its own.
//
// # Usage
//
//	client := rdservice.NewClient()
//	ep := rdservice.Endpoint{Host: "127.0.0.1", Port: rdservice.DefaultPort}
//
//	if _, err := rdservice.NewProber(client).Discover(ctx, ep); err != nil {
//	    return err
//	}
//
//	payload, err := rdservice.NewPidOptions().SetFingerCount(1).Payload()
//	if err != nil {
//	    return err
//	}
//	outcome := rdservice.NewCapturer(client).Capture(ctx, ep, payload)
package rdservice
