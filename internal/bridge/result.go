package bridge

import (
	"github.com/muurk/rdbridge/internal/rdservice"
)

// Result is the structured outcome handed to callers of the bridge. Every
// path produces one; device absence is reported here, never raised.
type Result struct {
	OK         bool                  `json:"ok"`
	Mock       bool                  `json:"mock"`
	Operation  string                `json:"operation"`
	Endpoint   string                `json:"endpoint,omitempty"`
	Port       int                   `json:"port,omitempty"`
	Message    string                `json:"message,omitempty"`
	ErrorClass *rdservice.ErrorClass `json:"errorClass,omitempty"`

	// Capture only: the verb that produced Result, and whether it was the fallback
	Verb     string `json:"verb,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`

	Info    *rdservice.Info          `json:"info,omitempty"`
	Capture *rdservice.CaptureStatus `json:"capture,omitempty"`
	Result  *rdservice.Response      `json:"result,omitempty"`

	// Err is the underlying error of a failed call
	Err error `json:"-"`
}

// Operation names used in results, logs and metrics
const (
	OpDiscover   = "discover"
	OpDeviceInfo = "device_info"
	OpCapture    = "capture"
)

// failure builds an ok:false result from err
func failure(op string, ep rdservice.Endpoint, err error) *Result {
	class := rdservice.ClassOf(err)
	return &Result{
		OK:         false,
		Operation:  op,
		Endpoint:   ep.Address(),
		Port:       ep.Port,
		Message:    rdservice.ShortMessage(err),
		ErrorClass: &class,
		Err:        err,
	}
}
