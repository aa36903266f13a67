package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/muurk/rdbridge/internal/rdservice"
)

// CurrentVersion is the settings file format version
const CurrentVersion = 1

// Settings is the process-level configuration of the bridge. Values here are
// defaults; callers may override host, port and auth key per call.
type Settings struct {
	Version  int                   `yaml:"version"`
	Service  ServiceSettings       `yaml:"service"`
	Timeouts TimeoutSettings       `yaml:"timeouts"`
	Retry    rdservice.RetryPolicy `yaml:"retry"`
	Mock     MockSettings          `yaml:"mock"`
	LogLevel string                `yaml:"log_level,omitempty"`
}

// ServiceSettings locates the RD service daemon.
type ServiceSettings struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TLS            bool   `yaml:"tls"`                  // https (true) or plain http
	AllowRemote    bool   `yaml:"allow_remote"`         // Permit non-loopback hosts
	AuthToken      string `yaml:"auth_token,omitempty"` // Forwarded to the daemon when set
	AuthHeader     string `yaml:"auth_header,omitempty"`
	DiscoveryPorts []int  `yaml:"discovery_ports,omitempty"` // Ports scanned by discover --scan
}

// TimeoutSettings bounds each kind of attempt.
type TimeoutSettings struct {
	Discovery time.Duration `yaml:"discovery"`
	Info      time.Duration `yaml:"info"`
	Capture   time.Duration `yaml:"capture"`
}

// MockSettings controls degraded-mode substitution.
type MockSettings struct {
	// DevMode serves mock responses without contacting the daemon
	DevMode bool `yaml:"dev_mode"`
	// AllowFallback permits a caller to accept a mock after a real failure
	// outside of development mode
	AllowFallback bool `yaml:"allow_fallback"`
}

// Defaults returns settings for a local RD service on the well-known port.
func Defaults() *Settings {
	return &Settings{
		Version: CurrentVersion,
		Service: ServiceSettings{
			Host:           rdservice.DefaultHost,
			Port:           rdservice.DefaultPort,
			TLS:            true,
			AuthHeader:     rdservice.DefaultAuthHeader,
			DiscoveryPorts: rdservice.ScanPorts(),
		},
		Timeouts: TimeoutSettings{
			Discovery: rdservice.DefaultDiscoveryTimeout,
			Info:      rdservice.DefaultInfoTimeout,
			Capture:   rdservice.DefaultCaptureTimeout,
		},
		Retry: rdservice.DefaultRetryPolicy(),
	}
}

// Scheme returns the URL scheme for the daemon.
func (s *Settings) Scheme() string {
	if s.Service.TLS {
		return "https"
	}
	return "http"
}

// MockPermitted reports whether a caller may accept a mock after a real failure.
func (s *Settings) MockPermitted() bool {
	return s.Mock.DevMode || s.Mock.AllowFallback
}

// IsLoopback reports whether host names the local machine.
func IsLoopback(host string) bool {
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	var problems []string

	if s.Version != CurrentVersion {
		problems = append(problems, fmt.Sprintf("unsupported config version: %d (expected %d)", s.Version, CurrentVersion))
	}
	if strings.TrimSpace(s.Service.Host) == "" {
		problems = append(problems, "service host must not be empty")
	} else if !s.Service.AllowRemote && !IsLoopback(s.Service.Host) {
		problems = append(problems, fmt.Sprintf("host %q is not loopback and remote access is not allowed", s.Service.Host))
	}
	if s.Service.Port < 1 || s.Service.Port > 65535 {
		problems = append(problems, fmt.Sprintf("service port must be 1-65535, got %d", s.Service.Port))
	}
	for _, port := range s.Service.DiscoveryPorts {
		if port < 1 || port > 65535 {
			problems = append(problems, fmt.Sprintf("discovery port must be 1-65535, got %d", port))
			break
		}
	}
	if s.Timeouts.Discovery <= 0 || s.Timeouts.Info <= 0 || s.Timeouts.Capture <= 0 {
		problems = append(problems, "timeouts must be positive")
	}
	if err := s.Retry.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
