package logging

import (
	"bytes"
	"testing"

	"github.com/contre95/snapsaver/src/features/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{Enabled: true, Level: "warn", Format: "logfmt"}, &buf)

	logger.Info("quiet")
	logger.Warn("loud", "path", "/watch/a.jpg")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "/watch/a.jpg")
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{Enabled: true, Level: "info", Format: "json"}, &buf)
	logger.Info("hello", "key", "value")
	assert.Contains(t, buf.String(), `"key":"value"`)
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{Enabled: false, Level: "debug"}, &buf)
	logger.Error("nothing")
	assert.Empty(t, buf.String())
}
