package rdservice

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/rdbridge/internal/logging"
)

const (
	// ScanPortFirst and ScanPortLast bound the port range RD services conventionally use
	ScanPortFirst = 11100
	ScanPortLast  = 11120

	// scanConcurrency limits simultaneous probes during a port scan
	scanConcurrency = 5
)

// Discovery is the answer to "is an RD service listening here?"
type Discovery struct {
	Found    bool      `json:"found"`
	Port     int       `json:"port"`
	Response *Response `json:"response,omitempty"`
	Info     *Info     `json:"info,omitempty"`
}

// Prober confirms an RD service is present. It never retries: discovery
// gates UI readiness and must answer quickly.
type Prober struct {
	Sender Sender
}

// NewProber creates a discovery prober over sender
func NewProber(sender Sender) *Prober {
	return &Prober{Sender: sender}
}

// IsServiceResponse reports whether resp identifies an RD service
func IsServiceResponse(resp *Response) bool {
	return resp.OK() && strings.Contains(resp.Body, ServiceMarker)
}

// Discover sends the discovery verb to ep. Found is true only for status 200
// with a body containing the RDService tag; any other response is a plain
// "not found", not an error. Transport failures are returned as errors.
func (p *Prober) Discover(ctx context.Context, ep Endpoint) (*Discovery, error) {
	if ep.Timeout == 0 {
		ep.Timeout = DefaultDiscoveryTimeout
	}

	resp, err := p.Sender.Send(ctx, ep, DiscoveryRequest())
	if err != nil {
		return &Discovery{Port: ep.Port}, err
	}

	result := &Discovery{Port: ep.Port, Response: resp}
	if !IsServiceResponse(resp) {
		logging.Debug("Endpoint answered but is not an RD service",
			zap.String("endpoint", ep.Address()),
			zap.Int("status_code", resp.StatusCode),
		)
		return result, nil
	}

	result.Found = true
	if info, parseErr := ParseInfo(resp.Body); parseErr == nil {
		result.Info = info
	} else {
		logging.Warn("Discovery body could not be parsed", zap.Error(parseErr))
	}
	return result, nil
}

// ScanPorts returns ScanPortFirst..ScanPortLast
func ScanPorts() []int {
	ports := make([]int, 0, ScanPortLast-ScanPortFirst+1)
	for port := ScanPortFirst; port <= ScanPortLast; port++ {
		ports = append(ports, port)
	}
	return ports
}

// Scan probes every port in ports concurrently and returns the discovery for
// the lowest port that answered as an RD service. When none did, Found is
// false and the error is the one observed on the first port in ports.
func (p *Prober) Scan(ctx context.Context, ep Endpoint, ports []int) (*Discovery, error) {
	if len(ports) == 0 {
		return p.Discover(ctx, ep)
	}

	var (
		mu       sync.Mutex
		results  = make([]*Discovery, len(ports))
		failures = make([]error, len(ports))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, port := range ports {
		g.Go(func() error {
			d, err := p.Discover(gctx, ep.WithPort(port))
			mu.Lock()
			results[i], failures[i] = d, err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var best *Discovery
	for _, d := range results {
		if d != nil && d.Found && (best == nil || d.Port < best.Port) {
			best = d
		}
	}
	if best != nil {
		logging.Info("RD service found by port scan",
			zap.String("host", ep.Host),
			zap.Int("port", best.Port),
		)
		return best, nil
	}

	return &Discovery{Port: ports[0], Response: results[0].Response}, failures[0]
}
