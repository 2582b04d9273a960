package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Field = zap.Field

// Field constructors used across the gateway. Add to this list rather than importing zap directly.
var (
	Any        = zap.Any
	Bool       = zap.Bool
	ByteString = zap.ByteString
	Duration   = zap.Duration
	Int        = zap.Int
	Int64      = zap.Int64
	String     = zap.String
	Strings    = zap.Strings
	Error      = zap.Error
	Errors     = zap.Errors
)

type Level zapcore.Level

const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	WarnLevel  = Level(zapcore.WarnLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
)
