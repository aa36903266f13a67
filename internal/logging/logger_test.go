package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if GetLogger().Core().Enabled(zapcore.DebugLevel) {
		t.Error("silent logger should not enable debug level")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	defer func() { _ = Initialize("") }()

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}

	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestHexDump_Truncates(t *testing.T) {
	data := make([]byte, 300)
	dump := hexDump(data)

	if !strings.HasSuffix(dump, "...") {
		t.Error("dump of 300 bytes should be truncated")
	}
	if len(dump) != 512+3 {
		t.Errorf("dump length = %d, want %d", len(dump), 515)
	}
}

func TestAsciiDump_ReplacesNonPrintable(t *testing.T) {
	got := asciiDump([]byte("<Info>\x00\x01</Info>"))
	want := "<Info>..</Info>"

	if got != want {
		t.Errorf("asciiDump() = %q, want %q", got, want)
	}
}
