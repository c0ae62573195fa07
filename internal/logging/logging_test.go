package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/addresskit/addresskit/internal/logging"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := logging.LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_SuppressesDebugBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, slog.LevelInfo)
	log.Debug("should not appear")
	log.Info("should appear", "region", "NSW")

	out := buf.String()
	if len(out) == 0 {
		t.Fatal("expected the info line to be written")
	}
	if bytesContains(out, "should not appear") {
		t.Errorf("debug line leaked through at info level: %q", out)
	}
	if !bytesContains(out, "should appear") {
		t.Errorf("info line missing from output: %q", out)
	}
}

func bytesContains(s, substr string) bool {
	return bytes.Contains([]byte(s), []byte(substr))
}
