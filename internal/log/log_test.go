package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

// TestSetLevel verifies that SetLevel updates the shared atomic level.
func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelInfo) })
	cases := []struct {
		in       string
		expected zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel}, // default branch
	}

	for _, c := range cases {
		SetLevel(c.in)
		if got := zapLevel.Level(); got != c.expected {
			t.Fatalf("SetLevel(%q) = %v; want %v", c.in, got, c.expected)
		}
	}
}

func TestNewHonoursLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelInfo) })
	var buf bytes.Buffer
	l := New(&buf)

	SetLevel(LevelWarn)
	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "WARN")
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	old := Default
	Default = New(&buf)
	t.Cleanup(func() { Default = old })

	With("run", "abc").Infof("hello")
	assert.Contains(t, buf.String(), "run")
	assert.Contains(t, buf.String(), "abc")
}
