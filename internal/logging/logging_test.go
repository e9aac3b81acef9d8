package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":   slog.LevelError,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"":        slog.LevelDebug,
		"verbose": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("level %q: expected %s, got %s", in, want, got)
		}
	}
}

func TestComponentTagsRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Component(NewWriter(&buf, "info"), "pipeline")
	logger.Debug("hidden")
	logger.Info("shown", "title", "File:A.jpg")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered: %s", out)
	}
	if !strings.Contains(out, "component=pipeline") || !strings.Contains(out, "title=File:A.jpg") {
		t.Fatalf("unexpected output: %s", out)
	}
}
