// Package config loads the process-level settings of the RD service bridge.
//
// Settings are resolved in three layers, later layers winning:
//
//  1. Built-in defaults (127.0.0.1:11100 over https, mocks disabled)
//  2. A YAML file, by default at the platform config location
//  3. Environment variables (RDSERVICE_HOST, RDSERVICE_PORT, RDSERVICE_TLS,
//     RDSERVICE_ALLOW_REMOTE, RDSERVICE_AUTH_TOKEN, RDSERVICE_AUTH_HEADER,
//     RDSERVICE_ALLOW_MOCK, RDBRIDGE_DEV_MODE)
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/rdbridge/config.yaml or $HOME/.config/rdbridge/config.yaml
//   - macOS: $HOME/.config/rdbridge/config.yaml
//   - Windows: %LOCALAPPDATA%\rdbridge\config.yaml
//
// RDBRIDGE_CONFIG points at a different file. A missing default file is not
// an error; a missing explicit file is.
//
// # Security
//
// Non-loopback hosts are rejected unless allow_remote is set. An auth token
// written by Save is stored with mode 0600; prefer RDSERVICE_AUTH_TOKEN.
package config
