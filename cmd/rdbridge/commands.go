package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/rdbridge/internal/bridge"
	"github.com/muurk/rdbridge/internal/rdservice"
	"github.com/muurk/rdbridge/internal/ui"
)

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(healthCmd)
}

// header prints the operation banner in detailed mode
func header(w io.Writer, title, command string) {
	if flagFormat != formatDetailed {
		return
	}
	b := bridge.New(settings)
	params := []ui.Detail{{Key: "Scheme", Value: settings.Scheme()}}
	if ep, err := b.Resolve(target()); err == nil {
		params = append([]ui.Detail{{Key: "Endpoint", Value: ep.Address()}}, params...)
	}
	if settings.Mock.DevMode {
		params = append(params, ui.Detail{Key: "Mode", Value: "development (mock responses)"})
	}
	ui.NewPrinter(w).PrintHeader(title, command, params...)
}

var flagScan bool

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Check whether an RD service is listening",
	Long: `Send the RDSERVICE discovery verb to the configured endpoint.

An endpoint counts as an RD service only when it answers 200 with an
<RDService> envelope. Any other answer is reported as "not found".
With --scan, ports 11100-11120 are probed concurrently and the lowest
responding port wins.`,
	Example: `  # Probe the configured port
  rdbridge discover

  # Scan the conventional port range
  rdbridge discover --scan

  # Script-friendly output
  rdbridge discover --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		header(out, "RD service discovery", "rdbridge "+cmd.Name())

		t := target()
		t.Scan = flagScan
		result := bridge.New(settings).Discover(cmd.Context(), t)
		return printResult(out, flagFormat, "RD service", result)
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&flagScan, "scan", false, "Scan ports 11100-11120 instead of a single port")
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Read device information",
	Long: `Send the DEVICEINFO verb to /rd/info and list the returned parameters.

Failed attempts are retried with exponential backoff according to the
retry section of the config file.`,
	Example: `  rdbridge info
  rdbridge info --port 11101 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		header(out, "Device info", "rdbridge "+cmd.Name())

		result := bridge.New(settings).DeviceInfo(cmd.Context(), target())
		return printResult(out, flagFormat, "Device info", result)
	},
}

// Capture flags
var (
	flagFCount      int
	flagFType       int
	flagFormatType  int
	flagPidTimeout  int
	flagEnv         string
	flagWADH        string
	flagPayloadFile string
	flagCustom      map[string]string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run a biometric capture",
	Long: `Send a PidOptions payload with the CAPTURE verb to /rd/capture.

If CAPTURE fails or is rejected, the same payload is sent once more with
POST. The result reports which verb produced the answer. The signed
biometric block is passed through untouched and never logged.`,
	Example: `  # Single finger, production environment
  rdbridge capture

  # Two fingers against pre-production with a 15s device timeout
  rdbridge capture --fcount 2 --env PP --pid-timeout 15000

  # Send a prepared payload
  rdbridge capture --payload pidoptions.xml --format json`,
	RunE: runCapture,
}

func init() {
	f := captureCmd.Flags()
	f.IntVar(&flagFCount, "fcount", 1, "Number of fingers to capture")
	f.IntVar(&flagFType, "ftype", 2, "Finger data type (0 FMR, 1 FIR, 2 both)")
	f.IntVar(&flagFormatType, "format-type", rdservice.FormatXML, "PID data format (0 XML, 1 protobuf)")
	f.IntVar(&flagPidTimeout, "pid-timeout", 10000, "Device-side capture timeout in milliseconds")
	f.StringVar(&flagEnv, "env", rdservice.EnvProduction, "Environment (P, PP, S)")
	f.StringVar(&flagWADH, "wadh", "", "wadh value")
	f.StringVar(&flagPayloadFile, "payload", "", "Read the PidOptions payload from a file ('-' for stdin)")
	f.StringToStringVar(&flagCustom, "cust", nil, "Extra CustOpts params (name=value)")
}

func capturePayload(in io.Reader) (string, error) {
	if flagPayloadFile != "" {
		var (
			data []byte
			err  error
		)
		if flagPayloadFile == "-" {
			data, err = io.ReadAll(in)
		} else {
			data, err = os.ReadFile(flagPayloadFile)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read payload: %w", err)
		}
		return string(data), nil
	}

	opts := rdservice.NewPidOptions().
		SetFingerCount(flagFCount).
		SetFingerType(flagFType).
		SetFormat(flagFormatType).
		SetTimeout(flagPidTimeout).
		SetEnv(flagEnv).
		SetWADH(flagWADH)
	for name, value := range flagCustom {
		opts.SetCustom(name, value)
	}
	return opts.Payload()
}

func runCapture(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	payload, err := capturePayload(cmd.InOrStdin())
	if err != nil {
		return err
	}

	header(out, "Biometric capture", "rdbridge "+cmd.Name())

	b := bridge.New(settings)
	var result *bridge.Result
	interactive := flagFormat == formatDetailed && ui.IsInteractive(os.Stdout)
	label := "Waiting for capture (up to " + strconv.Itoa(int(settings.Timeouts.Capture.Seconds())) + "s)"
	if err := ui.RunWithSpinner(out, interactive, label, func() {
		result = b.Capture(cmd.Context(), target(), payload)
	}); err != nil {
		return err
	}

	return printResult(out, flagFormat, "Capture", result)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Diagnose the RD service connection",
	Long: `Probe the RD service once and report healthy or unhealthy.

Unhealthy reports carry the error class and a fixed troubleshooting list.
The daemon is always probed, even in development mode.`,
	Example: `  rdbridge health
  rdbridge health --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		header(out, "Health check", "rdbridge "+cmd.Name())

		report := bridge.New(settings).Health(cmd.Context(), target())
		return printHealth(out, flagFormat, report)
	},
}
