package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"DEBUG":    zerolog.DebugLevel,
		" info ":   zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"disabled": zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) got=%v ok=%v want=%v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("unknown level must not parse")
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("empty level must not override")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "true")
	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || cfg.Timestamp || !cfg.NoColor {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestDefaultProfiles(t *testing.T) {
	rt := defaultConfig(ProfileRuntime)
	if rt.Level != zerolog.InfoLevel || !rt.Timestamp {
		t.Fatalf("unexpected runtime profile: %+v", rt)
	}
	tp := defaultConfig(ProfileTest)
	if tp.Level != zerolog.DebugLevel || tp.Timestamp {
		t.Fatalf("unexpected test profile: %+v", tp)
	}
}

func TestSetLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("unexpected level: %v", zerolog.GlobalLevel())
	}
	if err := SetLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if err := SetLevel(""); err != nil {
		t.Fatalf("empty level must be a no-op: %v", err)
	}
}

func TestConsoleOmitsTimeColumnWithoutTimestamps(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: zerolog.DebugLevel, NoColor: true, Out: &buf})
	logger.Info().Str("server", "Finance").Msg("node started")

	line := buf.String()
	if strings.Contains(line, "<nil>") {
		t.Fatalf("time placeholder leaked: %q", line)
	}
	if !strings.HasPrefix(line, "INF node started") {
		t.Fatalf("unexpected line: %q", line)
	}

	buf.Reset()
	logger = newLogger(Config{Level: zerolog.DebugLevel, Timestamp: true, NoColor: true, Out: &buf})
	logger.Info().Msg("node started")
	if strings.HasPrefix(buf.String(), "INF") || strings.Contains(buf.String(), "<nil>") {
		t.Fatalf("expected a leading timestamp: %q", buf.String())
	}
}
