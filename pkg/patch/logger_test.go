package patch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStdLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewStdLogger(LogLevelWarn, &buf)
	ctx := context.Background()

	l.Debug(ctx, "debug message")
	l.Info(ctx, "info message")
	if buf.Len() != 0 {
		t.Fatalf("entries below min level were written: %q", buf.String())
	}

	l.Warn(ctx, "warn message")
	l.Error(ctx, "error message", errors.New("boom"))
	out := buf.String()
	if !strings.Contains(out, "[WARN] warn message") {
		t.Fatalf("warn entry missing: %q", out)
	}
	if !strings.Contains(out, `[ERROR] [error="boom"] error message`) {
		t.Fatalf("error entry missing: %q", out)
	}
}

func TestStdLoggerFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewStdLogger(LogLevelDebug, &buf)
	ctx := context.Background()

	scoped := l.WithFields(Field("file", "a.txt"))
	scoped.Info(ctx, "patching", Field("hunk", 2))
	if !strings.Contains(buf.String(), "fields=[file=a.txt hunk=2]") {
		t.Fatalf("fields not rendered: %q", buf.String())
	}

	buf.Reset()
	l.Info(ctx, "plain")
	if strings.Contains(buf.String(), "fields=") {
		t.Fatalf("parent logger inherited scoped fields: %q", buf.String())
	}
}

func TestStdLoggerNilWriter(t *testing.T) {
	t.Parallel()

	l := NewStdLogger(LogLevelDebug, nil)
	l.Info(context.Background(), "goes nowhere")
}
