// Rdbridge talks to a local biometric RD service daemon.
//
// It discovers the daemon, reads its device information, runs captures
// (falling back from the CAPTURE verb to POST when the daemon rejects it)
// and reports health with troubleshooting advice. Results print as styled
// terminal output or as JSON for scripting.
//
// Usage:
//
//	rdbridge [command] [flags]
//
// See 'rdbridge --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/rdbridge/internal/bridge"
	"github.com/muurk/rdbridge/internal/config"
	"github.com/muurk/rdbridge/internal/logging"
	"github.com/muurk/rdbridge/internal/version"
)

// errReported marks a failure whose details were already printed
var errReported = errors.New("operation failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	flagHost          string
	flagPort          int
	flagAuthKey       string
	flagConfigPath    string
	flagFormat        string
	flagLogLevel      string
	flagMockOnFailure bool
)

// settings is loaded once per invocation by loadSettings
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "rdbridge",
	Short: "RD service device bridge",
	Long: `A client for local biometric RD service daemons.

Discovers the daemon, reads device information, runs fingerprint captures
and diagnoses connectivity problems. The daemon is expected on
127.0.0.1:11100 unless configured otherwise.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagHost, "host", "", "RD service host (overrides config)")
	pf.IntVar(&flagPort, "port", 0, "RD service port (overrides config)")
	pf.StringVar(&flagAuthKey, "auth-key", "", "Auth key forwarded to the RD service")
	pf.StringVar(&flagConfigPath, "config", "", "Config file path (default: platform config dir)")
	pf.StringVar(&flagFormat, "format", formatDetailed, "Output format (detailed, json)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	pf.BoolVar(&flagMockOnFailure, "mock-on-failure", false, "Accept a mock response if the device call fails (requires mock.allow_fallback)")

	rootCmd.AddCommand(versionCmd)
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	if flagFormat != formatDetailed && flagFormat != formatJSON {
		return fmt.Errorf("unknown format %q (want %s or %s)", flagFormat, formatDetailed, formatJSON)
	}

	s, err := config.Load(flagConfigPath)
	if err != nil {
		return err
	}
	settings = s

	level := flagLogLevel
	if level == "" {
		level = os.Getenv(logging.LogLevelEnvVar)
	}
	if level == "" {
		level = s.LogLevel
	}
	return logging.Initialize(level)
}

// target builds the per-call target from global flags
func target() bridge.Target {
	return bridge.Target{
		Host:          flagHost,
		Port:          flagPort,
		AuthKey:       flagAuthKey,
		MockOnFailure: flagMockOnFailure,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagFormat == formatJSON {
			return writeJSON(cmd.OutOrStdout(), version.Get())
		}
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "rdbridge %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
		return nil
	},
}
