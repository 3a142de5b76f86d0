package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorLoggerWritesWarningsAndErrors(t *testing.T) {
	InitLogger()
	var buf bytes.Buffer
	ErrorLogger.SetOutput(&buf)

	ErrorLogger.Errorf("Failed to publish %s: %v", "bill.paid", "connection closed")
	assert.Contains(t, buf.String(), "Failed to publish bill.paid: connection closed")
	assert.Contains(t, buf.String(), "level=error")

	buf.Reset()
	ErrorLogger.Warnf("RabbitMQ unavailable, events will only be logged: %v", "dial tcp")
	assert.Contains(t, buf.String(), "level=warning")

	buf.Reset()
	ErrorLogger.Infof("not for stderr")
	assert.Empty(t, buf.String())
}

func TestSetLevel(t *testing.T) {
	InitLogger()
	var buf bytes.Buffer
	ErrorLogger.SetOutput(&buf)

	SetLevel("debug")
	assert.Equal(t, "debug", InfoLogger.GetLevel().String())

	SetLevel("loud")
	assert.Equal(t, "debug", InfoLogger.GetLevel().String())
	assert.Contains(t, buf.String(), "Unknown log level")
}
