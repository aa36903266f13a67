// Package logging provides structured logging for the RD service bridge.
//
// This package wraps a global zap logger with convenience functions for the
// bridge's recurring events. Logging is silent unless a level is configured
// through RDBRIDGE_LOG_LEVEL, the --log-level flag or the config file, so
// CLI output stays clean. When enabled, logs go to stderr and JSON results
// on stdout stay machine-readable.
//
// # Log Levels
//
//   - Debug: request and response details, hex dumps of non-capture bodies
//   - Info: capture fallbacks, mock substitutions, scan results
//   - Warn: retries, unparseable bodies
//   - Error: failures the caller cannot recover from
//
// # Structured Logging
//
//	logging.Info("RD service found by port scan",
//	    zap.String("host", "127.0.0.1"),
//	    zap.Int("port", 11101),
//	)
//
// # Specialized Logging
//
//   - LogDeviceRequest / LogDeviceResponse: one line per transport attempt
//   - LogRetry: attempt number, delay and cause of each retry
//   - LogMockSubstitution: every time a mock answer replaces the device
//   - LogRawBytes: hex and ASCII dump at debug level
//
// Capture responses carry biometric data and are never dumped.
package logging
