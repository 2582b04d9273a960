package test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rainbow-me/access-gateway/common/logger"
)

// NewLogger returns a logger that only prints if a test fails
func NewLogger(t *testing.T) *logger.Logger {
	return logger.NewLogger(zaptest.NewLogger(t))
}

// NewObservedLogger returns a logger whose entries can be asserted on, teed to the test output.
func NewObservedLogger(t *testing.T) (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	tee := zapcore.NewTee(core, zaptest.NewLogger(t).Core())
	return logger.NewLogger(zap.New(tee)), logs
}

// Messages returns the messages of the observed entries in order.
func Messages(logs *observer.ObservedLogs) []string {
	entries := logs.All()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}
