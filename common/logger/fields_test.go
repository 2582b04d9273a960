package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithPanic(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	NewLogger(zap.New(core)).Error("recovered", WithPanic("kaboom")...)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "kaboom", fields["panic"])
	require.Contains(t, fields["stack"], "TestWithPanic")
}

func TestWithTraceWithoutSpan(t *testing.T) {
	require.Nil(t, WithTrace(nil))
}
