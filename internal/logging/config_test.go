package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		want zerolog.Level
		ok   bool
	}{
		"":            {zerolog.InfoLevel, false},
		"DEBUG":       {zerolog.DebugLevel, true},
		" warning ":   {zerolog.WarnLevel, true},
		"diagnostics": {zerolog.TraceLevel, true},
		"off":         {zerolog.Disabled, true},
		"loud":        {zerolog.InfoLevel, false},
	}
	for raw, tc := range cases {
		got, ok := parseLevel(raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseLevel(%q) = %v, %v; want %v, %v", raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "true")
	t.Setenv(EnvLogNoColor, "1")
	t.Setenv(EnvLogBypass, "nope")

	cfg := defaultConfig(ProfileTest)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || !cfg.Timestamp || !cfg.NoColor || cfg.Bypass {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestNewBypassWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.InfoLevel, Bypass: true, Out: &buf})
	logger.Info().Str("kind", "Sla").Msg("decoded")
	logger.Debug().Msg("filtered")
	out := buf.String()
	if !strings.Contains(out, `"kind":"Sla"`) || !strings.Contains(out, `"message":"decoded"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "filtered") {
		t.Fatalf("debug line should be filtered: %s", out)
	}
}

func TestNewConsoleNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.DebugLevel, NoColor: true, Out: &buf})
	logger.Debug().Str("kind", "Lockup").Msg("fetch")
	out := buf.String()
	if !strings.Contains(out, "kind=Lockup") || strings.Contains(out, "\x1b[") {
		t.Fatalf("unexpected console output: %q", out)
	}
}
