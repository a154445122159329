package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("generation finished", "adapter", "acme/soma", "tokens", 42)

	out := buf.String()
	for _, want := range []string{"generation finished", `"adapter":"acme/soma"`, `"level":"INFO"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in: %s", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)

	log.Debug("dropped")
	log.Info("dropped too")
	if buf.Len() > 0 {
		t.Fatalf("info/debug leaked through warn level: %s", buf.String())
	}

	log.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn filtered out: %s", buf.String())
	}
}

func TestWithAndWithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)

	log.With("component", "hub").Info("cache hit")
	if !strings.Contains(buf.String(), `"component":"hub"`) {
		t.Fatalf("With attr lost: %s", buf.String())
	}

	buf.Reset()
	log.WithGroup("batch").Info("row done", "line", 3)
	if !strings.Contains(buf.String(), "row done") {
		t.Fatalf("grouped record lost: %s", buf.String())
	}
}

func TestContextPlumbing(t *testing.T) {
	t.Parallel()

	// no logger installed: FromContext must still hand back something usable
	FromContext(context.Background()).Info("default logger works")

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("context logger not used: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
		{"ERROR", slog.LevelInfo}, // levels are matched lowercase only
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPrettyRecordShape(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelDebug)
	log.Debug("fetching artifact", "file", "tokenizer.json")

	out := buf.String()
	if !strings.Contains(out, "fetching artifact") || !strings.Contains(out, "file=tokenizer.json") {
		t.Fatalf("pretty record malformed: %s", out)
	}
	if !strings.Contains(out, "DEBUG") {
		t.Fatalf("level label missing: %s", out)
	}
}

func TestPrettyHandlerLevels(t *testing.T) {
	t.Parallel()

	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("error disabled at warn level")
	}
}

func TestPrettyHandlerAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewPrettyHandler(&buf, nil)

	slog.New(base.WithAttrs([]slog.Attr{slog.String("service", "somagen")})).Info("boot")
	if !strings.Contains(buf.String(), "service=somagen") {
		t.Fatalf("handler attrs lost: %s", buf.String())
	}

	buf.Reset()
	nested := base.WithGroup("engine").WithGroup("openai")
	slog.New(nested).Info("request", "status", 200)
	if !strings.Contains(buf.String(), "engine.openai.status=200") {
		t.Fatalf("group prefixes lost: %s", buf.String())
	}

	if got := base.WithGroup(""); got != base {
		t.Fatal("empty group must be a no-op")
	}
}

func TestPrettyQuoting(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo)
	log.Info("summary stored", "id", "sum_1", "text", "two words")

	out := buf.String()
	if !strings.Contains(out, "id=sum_1") {
		t.Fatalf("plain value quoted or lost: %s", out)
	}
	if !strings.Contains(out, `text="two words"`) {
		t.Fatalf("spaced value not quoted: %s", out)
	}

	cases := map[string]bool{
		"plain":        false,
		"with space":   true,
		"tab\there":    true,
		"line\nbreak":  true,
		`inner"quote"`: true,
		"":             false,
	}
	for in, want := range cases {
		if got := needsQuoting(in); got != want {
			t.Errorf("needsQuoting(%q) = %v, want %v", in, got, want)
		}
	}
}
