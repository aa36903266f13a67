package bridge

import (
	"time"

	"github.com/muurk/rdbridge/internal/config"
	"github.com/muurk/rdbridge/internal/rdservice"
)

// Target carries the per-call choices of a caller: an optional endpoint
// override and whether a mock is acceptable if the real call fails.
type Target struct {
	Host    string
	Port    int
	AuthKey string

	// Scan probes the configured discovery ports instead of a single port
	Scan bool

	// MockOnFailure accepts a mock response after a real failure. It is
	// honored only when settings permit mocks (dev mode or allow_fallback).
	MockOnFailure bool
}

// Resolver merges process settings with per-call overrides into an Endpoint.
type Resolver struct {
	Settings *config.Settings
}

// Resolve returns the endpoint for target with the given attempt timeout.
// Non-loopback hosts are rejected unless remote access is allowed.
func (r *Resolver) Resolve(target Target, timeout time.Duration) (rdservice.Endpoint, error) {
	ep := rdservice.Endpoint{
		Host:    r.Settings.Service.Host,
		Port:    r.Settings.Service.Port,
		AuthKey: r.Settings.Service.AuthToken,
		Timeout: timeout,
	}
	if target.Host != "" {
		ep.Host = target.Host
	}
	if target.Port != 0 {
		ep.Port = target.Port
	}
	if target.AuthKey != "" {
		ep.AuthKey = target.AuthKey
	}

	if ep.Port < 1 || ep.Port > 65535 {
		return ep, rdservice.NewInvalidPortError(ep.Port)
	}
	if !r.Settings.Service.AllowRemote && !config.IsLoopback(ep.Host) {
		return ep, rdservice.NewRemoteHostError(ep.Host)
	}
	return ep, nil
}
