package logger

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type bufferWriter struct {
	lines []string
}

func (w *bufferWriter) Printf(format string, args ...interface{}) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]LogLevel{"silent": Silent, "ERROR": Error, " warn ": Warn, "warning": Warn, "info": Info} {
		level, ok := ParseLevel(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, level, input)
	}

	_, ok := ParseLevel("verbose")
	assert.False(t, ok)
}

func TestLoggerLevels(t *testing.T) {
	w := &bufferWriter{}
	l := New(w, Config{LogLevel: Warn})

	l.Info(context.Background(), "model %v registered", "Order")
	assert.Empty(t, w.lines)

	l.Warn(context.Background(), "callback %v replaced", "validate")
	if assert.Len(t, w.lines, 1) {
		assert.Contains(t, w.lines[0], "[warn] callback validate replaced")
		assert.Contains(t, w.lines[0], "logger_test.go")
	}
}

func TestLoggerTrace(t *testing.T) {
	w := &bufferWriter{}
	l := New(w, Config{LogLevel: Info, SlowThreshold: 50 * time.Millisecond})

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "Customer ids=[1 2]", 2 }, nil)
	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "Customer ids=[3]", -1 }, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "Customer ids=[4]", 0 }, assert.AnError)

	if assert.Len(t, w.lines, 3) {
		assert.Contains(t, w.lines[0], "[entities:2] Customer ids=[1 2]")
		assert.True(t, strings.Contains(w.lines[1], "SLOW FETCH >= 50ms"), w.lines[1])
		assert.Contains(t, w.lines[1], "[entities:-]")
		assert.Contains(t, w.lines[2], assert.AnError.Error())
	}

	w.lines = nil
	l.LogMode(Silent).Trace(context.Background(), time.Now(), func() (string, int64) { return "", 0 }, assert.AnError)
	assert.Empty(t, w.lines)
}
