package logger

import (
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rainbow-me/access-gateway/common/env"
)

const (
	MessageKey = "message"
	// AccessLoggerName names the child logger carrying access log lines so sinks can route them apart.
	AccessLoggerName = "access"
)

// Logger is a thin wrapper over zap so packages depend on our logger type rather than zap directly.
type Logger struct {
	*zap.Logger
}

var (
	instanceMu sync.RWMutex
	instance   *Logger
)

// NewLogger wraps an existing zap logger. A nil zap logger yields a no-op logger.
func NewLogger(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{Logger: z}
}

// Instance returns the process-wide logger, building one from the environment on first use.
func Instance() *Logger {
	instanceMu.RLock()
	l := instance
	instanceMu.RUnlock()
	if l != nil {
		return l
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return instance
	}
	built, err := InitLogger()
	if err != nil {
		// an unset or unknown ENVIRONMENT should not silence logging entirely
		z, prodErr := zap.NewProduction()
		if prodErr != nil {
			z = zap.NewNop()
		}
		built = NewLogger(z)
		built.Warn("falling back to production logger", Error(err))
	}
	instance = built
	return instance
}

// SetInstance replaces the process-wide logger, typically once from main.
func SetInstance(l *Logger) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = l
}

// With returns a child logger with the fields attached.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named returns a child logger with the name segment appended.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// Log writes msg at the given level.
func (l *Logger) Log(level Level, msg string, fields ...Field) {
	if ce := l.Check(zapcore.Level(level), msg); ce != nil {
		ce.Write(fields...)
	}
}

// Zap exposes the underlying zap logger for libraries that require it.
func (l *Logger) Zap() *zap.Logger {
	return l.Logger
}

// InitLogger builds a zap logger configured for the current ENVIRONMENT.
// Local runs get a colored console encoder, every other environment gets JSON for log ingestion.
func InitLogger(zapOpts ...zap.Option) (*Logger, error) {
	currentEnv, err := env.Current()
	if err != nil {
		return nil, errors.Wrap(err, "invalid environment")
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		FunctionKey:   zapcore.OmitKey,
		MessageKey:    MessageKey,
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	var config zap.Config
	switch currentEnv {
	case env.EnvironmentLocal:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.MessageKey = MessageKey
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case env.EnvironmentProduction:
		config = zap.NewProductionConfig()
		config.EncoderConfig = encoderConfig
		config.Level.SetLevel(zap.InfoLevel)
	default:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig = encoderConfig
		config.Encoding = "json"
	}

	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	options = append(options, zapOpts...)

	z, err := config.Build(options...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}
	return NewLogger(z), nil
}
