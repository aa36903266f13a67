package rdservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muurk/rdbridge/internal/metrics"
)

// HealthStatus is the verdict of a health check
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// troubleshooting is the single lookup table from error class to operator
// advice. Callers must go through Troubleshooting.
var troubleshooting = map[ErrorClass][]string{
	ClassConnectionRefused: {
		"RD service is not running",
		"Check that the RD service daemon is started",
		"Check that the port is not blocked by a firewall",
		"Verify the configured port matches the daemon (default 11100)",
	},
	ClassTimeout: {
		"RD service is unresponsive",
		"Check for conflicting processes listening on the port",
		"Restart the RD service daemon",
		"Reconnect the biometric device and wait for it to initialize",
	},
	ClassHostUnreachable: {
		"The RD service host is not reachable",
		"RD service normally runs on the same machine (127.0.0.1)",
		"Check network configuration if remote access is enabled",
	},
	ClassHostNotFound: {
		"The RD service host name could not be resolved",
		"Use 127.0.0.1 instead of a host name",
		"Check the configured host for typos",
	},
	ClassUnknown: {
		"Unexpected error talking to the RD service",
		"Restart the RD service daemon",
		"Run with RDBRIDGE_LOG_LEVEL=debug for details",
	},
}

// notServiceTroubleshooting applies when something answered that is not an RD service
var notServiceTroubleshooting = []string{
	"Another program is answering on the RD service port",
	"Check which process owns the port",
	"Configure the port the RD service daemon actually uses",
}

// policyTroubleshooting applies when a call was rejected before reaching the network
var policyTroubleshooting = map[PolicyReason][]string{
	PolicyRemoteHost: {
		"The RD service host is not on this machine",
		"Use 127.0.0.1 for a local RD service",
		"Set RDSERVICE_ALLOW_REMOTE=true to reach a non-loopback RD service",
	},
	PolicyInvalidPort: {
		"The RD service port is out of range",
		"Use a port between 1 and 65535 (default 11100)",
		"Check --port, RDSERVICE_PORT and service.port in the config file",
	},
	PolicyOther: {
		"The request was rejected before it was sent",
		"Check the bridge configuration with 'rdbridge config show'",
	},
}

// Troubleshooting returns the fixed advice list for class
func Troubleshooting(class ErrorClass) []string {
	tips, ok := troubleshooting[class]
	if !ok {
		tips = troubleshooting[ClassUnknown]
	}
	out := make([]string, len(tips))
	copy(out, tips)
	return out
}

// PolicyTroubleshooting returns the fixed advice list for a policy rejection
func PolicyTroubleshooting(reason PolicyReason) []string {
	tips, ok := policyTroubleshooting[reason]
	if !ok {
		tips = policyTroubleshooting[PolicyOther]
	}
	return append([]string(nil), tips...)
}

// HealthReport is the outcome of one health check
type HealthReport struct {
	Status          HealthStatus `json:"status"`
	Detail          string       `json:"detail"`
	Endpoint        string       `json:"endpoint"`
	ErrorClass      *ErrorClass  `json:"errorClass,omitempty"`
	Troubleshooting []string     `json:"troubleshooting,omitempty"`
	Info            *Info        `json:"info,omitempty"`
	CheckedAt       time.Time    `json:"checkedAt"`
}

// Healthy reports whether the check passed
func (r *HealthReport) Healthy() bool {
	return r != nil && r.Status == StatusHealthy
}

// HealthChecker runs a discovery probe and turns the outcome into a report
type HealthChecker struct {
	Prober *Prober
}

// NewHealthChecker creates a health checker over sender
func NewHealthChecker(sender Sender) *HealthChecker {
	return &HealthChecker{Prober: NewProber(sender)}
}

// RejectedReport describes a check that could not run because err rejected
// the endpoint. Policy rejections get advice for their reason; other errors
// get the advice for their class.
func RejectedReport(ep Endpoint, err error) *HealthReport {
	class := ClassOf(err)
	report := &HealthReport{
		Status:     StatusUnhealthy,
		Detail:     ShortMessage(err),
		Endpoint:   ep.Address(),
		ErrorClass: &class,
		CheckedAt:  time.Now(),
	}

	var devErr *DeviceError
	if errors.As(err, &devErr) && devErr.Kind == ErrKindPolicy {
		report.Troubleshooting = PolicyTroubleshooting(devErr.Policy)
	} else {
		report.Troubleshooting = Troubleshooting(class)
	}
	return report
}

// Check probes ep once. It never returns an error: an absent service is a
// normal, reportable outcome.
func (h *HealthChecker) Check(ctx context.Context, ep Endpoint) *HealthReport {
	report := &HealthReport{
		Endpoint:  ep.Address(),
		CheckedAt: time.Now(),
	}

	discovery, err := h.Prober.Discover(ctx, ep)
	switch {
	case err != nil:
		class := ClassOf(err)
		report.Status = StatusUnhealthy
		report.Detail = ShortMessage(err)
		report.ErrorClass = &class
		report.Troubleshooting = Troubleshooting(class)

	case !discovery.Found:
		report.Status = StatusUnhealthy
		if discovery.Response != nil {
			report.Detail = fmt.Sprintf("endpoint answered with status %d but is not an RD service", discovery.Response.StatusCode)
		} else {
			report.Detail = "endpoint is not an RD service"
		}
		report.Troubleshooting = append([]string(nil), notServiceTroubleshooting...)

	default:
		report.Status = StatusHealthy
		report.Info = discovery.Info
		report.Detail = "RD service is running"
		if discovery.Info != nil && discovery.Info.Status != "" {
			report.Detail = fmt.Sprintf("RD service is running (%s)", discovery.Info.Status)
		}
	}

	metrics.SetHealth(report.Endpoint, report.Healthy())
	return report
}
