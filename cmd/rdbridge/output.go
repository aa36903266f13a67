package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/muurk/rdbridge/internal/bridge"
	"github.com/muurk/rdbridge/internal/rdservice"
	"github.com/muurk/rdbridge/internal/ui"
)

const (
	formatDetailed = "detailed"
	formatJSON     = "json"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult renders result in the selected format. A failed result returns
// errReported so the process exits non-zero.
func printResult(w io.Writer, format, title string, result *bridge.Result) error {
	if format == formatJSON {
		if err := writeJSON(w, result); err != nil {
			return err
		}
	} else {
		ui.NewPrinter(w).PrintResult(resultBox(title, result))
	}

	if !result.OK {
		return errReported
	}
	return nil
}

func resultBox(title string, result *bridge.Result) *ui.Result {
	if !result.OK {
		err := result.Err
		if err == nil {
			err = errors.New(result.Message)
		}
		var tips []string
		if result.ErrorClass != nil && rdservice.IsTransportError(result.Err) {
			tips = rdservice.Troubleshooting(*result.ErrorClass)
		}
		box := ui.NewFailureResult(title, err, tips)
		box.Details = endpointDetails(result)
		return box
	}

	details := endpointDetails(result)
	details = append(details, operationDetails(result)...)

	if result.Mock {
		details = append(details, ui.Detail{Key: "Reason", Value: strings.TrimPrefix(result.Message, "mock response: ")})
		if result.ErrorClass != nil {
			details = append(details, ui.Detail{Key: "Device error", Value: result.ErrorClass.String()})
		}
		return ui.NewMockResult(title, details)
	}
	return ui.NewSuccessResult(title, details)
}

func endpointDetails(result *bridge.Result) []ui.Detail {
	var details []ui.Detail
	if result.Endpoint != "" {
		details = append(details, ui.Detail{Key: "Endpoint", Value: result.Endpoint})
	}
	if result.Result != nil {
		details = append(details, ui.Detail{Key: "Status", Value: strconv.Itoa(result.Result.StatusCode)})
	}
	return details
}

func operationDetails(result *bridge.Result) []ui.Detail {
	var details []ui.Detail

	if result.Verb != "" {
		verb := result.Verb
		if result.Fallback {
			verb += " (fallback)"
		}
		details = append(details, ui.Detail{Key: "Verb", Value: verb})
	}

	if info := result.Info; info != nil {
		if info.Status != "" {
			details = append(details, ui.Detail{Key: "Service status", Value: info.Status})
		}
		if info.Description != "" {
			details = append(details, ui.Detail{Key: "Service", Value: info.Description})
		}
		for _, p := range info.Params {
			details = append(details, ui.Detail{Key: p.Name, Value: p.Value})
		}
	}

	if c := result.Capture; c != nil && c.Present {
		details = append(details,
			ui.Detail{Key: "errCode", Value: c.ErrCode},
			ui.Detail{Key: "errInfo", Value: c.ErrInfo},
		)
		if c.QScore != "" {
			details = append(details, ui.Detail{Key: "qScore", Value: c.QScore})
		}
		details = append(details, ui.Detail{Key: "Signed block", Value: signedBlock(c)})
	}
	return details
}

func signedBlock(c *rdservice.CaptureStatus) string {
	var parts []string
	for _, p := range []struct {
		name    string
		present bool
	}{{"Skey", c.HasSkey}, {"Hmac", c.HasHmac}, {"Data", c.HasData}} {
		if p.present {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "absent"
	}
	return strings.Join(parts, ", ") + " (not verified)"
}

// printHealth renders a health report. Unhealthy reports return errReported.
func printHealth(w io.Writer, format string, report *rdservice.HealthReport) error {
	if format == formatJSON {
		if err := writeJSON(w, report); err != nil {
			return err
		}
	} else {
		ui.NewPrinter(w).PrintResult(healthBox(report))
	}

	if !report.Healthy() {
		return errReported
	}
	return nil
}

func healthBox(report *rdservice.HealthReport) *ui.Result {
	details := []ui.Detail{
		{Key: "Endpoint", Value: report.Endpoint},
		{Key: "Checked", Value: report.CheckedAt.Format("15:04:05")},
	}

	if !report.Healthy() {
		box := ui.NewFailureResult("RD service unhealthy", errors.New(report.Detail), report.Troubleshooting)
		if report.ErrorClass != nil {
			details = append(details, ui.Detail{Key: "Error class", Value: report.ErrorClass.String()})
		}
		box.Details = details
		return box
	}

	details = append(details, ui.Detail{Key: "Detail", Value: report.Detail})
	if report.Info != nil {
		params := report.Info.Map()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			details = append(details, ui.Detail{Key: k, Value: params[k]})
		}
	}
	return ui.NewSuccessResult("RD service healthy", details)
}

// healthLine is the one-line form used by watch
func healthLine(report *rdservice.HealthReport) string {
	line := fmt.Sprintf("%s  %-9s  %s  %s",
		report.CheckedAt.Format("2006-01-02 15:04:05"), report.Status, report.Endpoint, report.Detail)
	if report.ErrorClass != nil {
		line += " [" + report.ErrorClass.String() + "]"
	}
	return line
}
