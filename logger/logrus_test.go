package logger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrusLogger(t *testing.T) {
	logrusLogger := logrus.New()
	logrusLogger.SetOutput(&bytes.Buffer{})

	logrusAdapter := NewLogrusLogger(logrusLogger, Config{
		LogLevel:      Info,
		SlowThreshold: 100 * time.Millisecond,
	})

	require.NotNil(t, logrusAdapter)
	assert.Equal(t, Info, logrusAdapter.(*LogrusLogger).LogLevel)
	assert.Equal(t, 100*time.Millisecond, logrusAdapter.(*LogrusLogger).SlowThreshold)

	errorLogger := logrusAdapter.LogMode(Error)
	assert.Equal(t, Error, errorLogger.(*LogrusLogger).LogLevel)
	assert.Equal(t, Info, logrusAdapter.(*LogrusLogger).LogLevel)
}

func TestLogrusLogger_Trace(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	logrusLogger := logrus.New()
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetFormatter(&logrus.JSONFormatter{})

	logger := NewLogrusLogger(logrusLogger, Config{
		LogLevel:      Info,
		SlowThreshold: 100 * time.Millisecond,
	})

	logger.Trace(ctx, time.Now(), func() (string, int64) {
		return "Customer ids=[1 2]", 2
	}, nil)
	assert.Contains(t, buf.String(), `"entities":2`)
	assert.Contains(t, buf.String(), `"msg":"fetch"`)

	buf.Reset()
	logger.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
		return "Customer ids=[1]", 1
	}, nil)
	assert.Contains(t, buf.String(), "SLOW fetch")

	buf.Reset()
	logger.Trace(ctx, time.Now(), func() (string, int64) {
		return "Customer ids=[1]", 0
	}, assert.AnError)
	assert.Contains(t, buf.String(), "fetch failed")
	assert.Contains(t, buf.String(), assert.AnError.Error())

	buf.Reset()
	logger.Warn(ctx, "duplicated callback %v", "tableless:validate")
	assert.Contains(t, buf.String(), "duplicated callback tableless:validate")
}
