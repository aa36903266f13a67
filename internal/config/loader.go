package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "rdbridge"
	configFile = "config.yaml"
)

// Environment variables that override file settings
const (
	EnvHost        = "RDSERVICE_HOST"
	EnvPort        = "RDSERVICE_PORT"
	EnvTLS         = "RDSERVICE_TLS"
	EnvAllowRemote = "RDSERVICE_ALLOW_REMOTE"
	EnvAuthToken   = "RDSERVICE_AUTH_TOKEN"
	EnvAuthHeader  = "RDSERVICE_AUTH_HEADER"
	EnvAllowMock   = "RDSERVICE_ALLOW_MOCK"
	EnvDevMode     = "RDBRIDGE_DEV_MODE"
	EnvConfigPath  = "RDBRIDGE_CONFIG"
)

// LookupFunc reads one environment variable
type LookupFunc func(key string) (string, bool)

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/rdbridge or $HOME/.config/rdbridge
//   - macOS: $HOME/.config/rdbridge
//   - Windows: %LOCALAPPDATA%\rdbridge
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load builds settings from defaults, the YAML file at path and the process
// environment, then validates them. An empty path means RDBRIDGE_CONFIG or
// the default location, either of which may be absent; an explicit path
// must exist.
func Load(path string) (*Settings, error) {
	return LoadWithLookup(path, os.LookupEnv)
}

// LoadWithLookup is Load with an explicit environment lookup.
func LoadWithLookup(path string, lookup LookupFunc) (*Settings, error) {
	settings := Defaults()

	explicit := path != ""
	if !explicit {
		if envPath, ok := lookup(EnvConfigPath); ok && envPath != "" {
			path, explicit = envPath, true
		}
	}
	if !explicit {
		defaultPath, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = defaultPath
	}

	// A missing default file means defaults apply
	if err := settings.readFile(path); err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
		return nil, err
	}

	if err := settings.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// readFile overlays the YAML file at path onto s.
func (s *Settings) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables.
func (s *Settings) ApplyEnv(lookup LookupFunc) error {
	if v, ok := lookupNonEmpty(lookup, EnvHost); ok {
		s.Service.Host = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		s.Service.Port = port
	}
	if v, ok := lookupNonEmpty(lookup, EnvAuthToken); ok {
		s.Service.AuthToken = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvAuthHeader); ok {
		s.Service.AuthHeader = v
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{EnvTLS, &s.Service.TLS},
		{EnvAllowRemote, &s.Service.AllowRemote},
		{EnvAllowMock, &s.Mock.AllowFallback},
		{EnvDevMode, &s.Mock.DevMode},
	}
	for _, b := range bools {
		v, ok := lookupNonEmpty(lookup, b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: expected true or false", b.key, v)
		}
		*b.target = parsed
	}

	return nil
}

func lookupNonEmpty(lookup LookupFunc, key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Save writes s to path, creating the directory if needed.
// Performs an atomic write to prevent corruption on crash.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# RD service bridge configuration
#
# Environment variables (RDSERVICE_HOST, RDSERVICE_PORT, RDSERVICE_TLS,
# RDSERVICE_ALLOW_REMOTE, RDSERVICE_AUTH_TOKEN, RDSERVICE_ALLOW_MOCK,
# RDBRIDGE_DEV_MODE) override the values below.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
