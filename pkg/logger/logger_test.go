package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWithWriters(&out, &errOut)
	l.SetLevel(LevelWarn)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("shown %d", 4)

	if out.Len() != 0 {
		t.Errorf("expected no info/debug output, got %q", out.String())
	}
	got := errOut.String()
	if !strings.Contains(got, "WARN: ") || !strings.Contains(got, "shown 3") {
		t.Errorf("missing warn line in %q", got)
	}
	if !strings.Contains(got, "ERROR: ") || !strings.Contains(got, "shown 4") {
		t.Errorf("missing error line in %q", got)
	}
}
