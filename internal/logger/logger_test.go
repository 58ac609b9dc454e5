package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	t.Cleanup(SetLogger(slog.New(h)))
	t.Cleanup(func() { SetPrefix(""); SetLevel("info") })
	return &buf
}

func TestPrefixAndLevel(t *testing.T) {
	buf := capture(t)
	SetPrefix("watch")
	SetLevel("info")

	Debugf("hidden %d", 1)
	Infof("connected to %s", "ws://x")
	Errorf("boom: %v", "eof")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level:\n%s", out)
	}
	for _, want := range []string{"[watch] connected to ws://x", "level=ERROR", "[watch] boom: eof"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogDuration(t *testing.T) {
	buf := capture(t)

	SetLevel("info")
	LogDuration("fast", time.Now())
	if buf.Len() != 0 {
		t.Errorf("fast call logged at info level: %s", buf.String())
	}
	LogDuration("slow", time.Now().Add(-150*time.Millisecond))
	if !strings.Contains(buf.String(), "fn=slow") {
		t.Errorf("slow call not logged: %s", buf.String())
	}

	buf.Reset()
	SetLevel("debug")
	DeferLogDuration("fast", time.Now())()
	if !strings.Contains(buf.String(), "fn=fast") {
		t.Errorf("fast call not logged at debug level: %s", buf.String())
	}
}
