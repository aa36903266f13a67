package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/muurk/rdbridge/internal/bridge"
	"github.com/muurk/rdbridge/internal/rdservice"
)

func mockResult() *bridge.Result {
	class := rdservice.ClassConnectionRefused
	resp := rdservice.NewMockResponder().Info()
	info, _ := rdservice.ParseInfo(resp.Body)
	return &bridge.Result{
		OK:         true,
		Mock:       true,
		Operation:  bridge.OpDeviceInfo,
		Endpoint:   "127.0.0.1:11100",
		Message:    "mock response: RD service not running (connection refused)",
		ErrorClass: &class,
		Info:       info,
		Result:     resp,
	}
}

func TestPrintResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printResult(&buf, formatJSON, "Device info", mockResult()); err != nil {
		t.Fatalf("printResult() error = %v", err)
	}

	var decoded struct {
		OK         bool   `json:"ok"`
		Mock       bool   `json:"mock"`
		ErrorClass string `json:"errorClass"`
		Result     struct {
			StatusCode int    `json:"statusCode"`
			Body       string `json:"body"`
		} `json:"result"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if !decoded.OK || !decoded.Mock || decoded.Result.StatusCode != 200 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.ErrorClass != "ConnectionRefused" {
		t.Errorf("errorClass = %q", decoded.ErrorClass)
	}
	if !strings.Contains(decoded.Result.Body, "<RDService") {
		t.Errorf("body = %q", decoded.Result.Body)
	}
}

func TestPrintResult_Detailed(t *testing.T) {
	var buf bytes.Buffer
	if err := printResult(&buf, formatDetailed, "Device info", mockResult()); err != nil {
		t.Fatalf("printResult() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"MOCK", "Device info", rdservice.MockDPID, "ConnectionRefused"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintResult_FailureExitsNonZero(t *testing.T) {
	class := rdservice.ClassTimeout
	result := &bridge.Result{
		Operation:  bridge.OpCapture,
		Endpoint:   "127.0.0.1:11100",
		Message:    "RD service not responding (timeout)",
		ErrorClass: &class,
		Err:        rdservice.NewTransportError("capture failed", "127.0.0.1:11100", errors.New("i/o timeout")),
	}

	var buf bytes.Buffer
	err := printResult(&buf, formatDetailed, "Capture", result)
	if !errors.Is(err, errReported) {
		t.Errorf("printResult() error = %v, want errReported", err)
	}
}

func TestResultBox_Troubleshooting(t *testing.T) {
	class := rdservice.ClassTimeout
	result := &bridge.Result{
		ErrorClass: &class,
		Err:        rdservice.NewTransportError("x", "", errTimeout{}),
	}

	box := resultBox("Capture", result)
	if len(box.Troubleshooting) == 0 || box.Troubleshooting[0] != "RD service is unresponsive" {
		t.Errorf("Troubleshooting = %v", box.Troubleshooting)
	}

	notFound := &bridge.Result{Message: "no RD service found at 127.0.0.1:11100"}
	if box := resultBox("RD service", notFound); len(box.Troubleshooting) != 0 || box.Error == nil {
		t.Errorf("not-found box = %+v", box)
	}
}

func TestHealthLine(t *testing.T) {
	class := rdservice.ClassConnectionRefused
	report := &rdservice.HealthReport{
		Status:     rdservice.StatusUnhealthy,
		Detail:     "RD service not running (connection refused)",
		Endpoint:   "127.0.0.1:11100",
		ErrorClass: &class,
		CheckedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	line := healthLine(report)
	for _, want := range []string{"2025-06-01 12:00:00", "unhealthy", "127.0.0.1:11100", "[ConnectionRefused]"} {
		if !strings.Contains(line, want) {
			t.Errorf("healthLine() = %q, missing %q", line, want)
		}
	}
}

type errTimeout struct{}

func (errTimeout) Error() string { return "i/o timeout" }
func (errTimeout) Timeout() bool { return true }
