// Package ui renders rdbridge command output in the terminal.
//
// Components follow a "run once and exit" pattern: a Header describing the
// operation, an optional spinner while a capture waits on the device, and a
// Result box. Results come in three styles: success (a real device
// answered), failure (with troubleshooting advice) and mock (a synthetic
// answer). Mock results use their own color and marker so they are never
// mistaken for device output.
//
// Zap logging is silent unless RDBRIDGE_LOG_LEVEL is set, which keeps this
// output clean. Logs go to stderr when enabled.
package ui
