package interceptors

import (
	"time"

	grpctrace "github.com/DataDog/dd-trace-go/contrib/google.golang.org/grpc/v2"

	"github.com/rainbow-me/access-gateway/common/logger"
	"github.com/rainbow-me/access-gateway/http/accesslog"
)

// Interceptor ids used by NewDefaultServerUnaryChain.
const (
	TraceID          = "trace"
	AccessLogID      = "access-log"
	ContextStatusID  = "context-status"
	ServerDeadlineID = "server-deadline"
	PanicRecoveryID  = "panic-recovery"
)

// Config holds the options of the default server chain.
type Config struct {
	ServiceName          string
	RequestTimeout       time.Duration
	PanicRecoveryEnabled bool
	AccessLogOptions     []AccessLogOption
}

type ConfigOption func(*Config)

// WithRequestTimeout bounds every call. Zero disables the deadline interceptor.
func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithoutPanicRecovery lets handler panics crash the server.
func WithoutPanicRecovery() ConfigOption {
	return func(c *Config) {
		c.PanicRecoveryEnabled = false
	}
}

// WithAccessLogOptions forwards options to the access log interceptor.
func WithAccessLogOptions(opts ...AccessLogOption) ConfigOption {
	return func(c *Config) {
		c.AccessLogOptions = append(c.AccessLogOptions, opts...)
	}
}

// NewConfig returns the defaults: a 30s request timeout and panic recovery.
func NewConfig(serviceName string, opts ...ConfigOption) *Config {
	cfg := &Config{
		ServiceName:          serviceName,
		RequestTimeout:       30 * time.Second,
		PanicRecoveryEnabled: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewDefaultServerUnaryChain builds the gateway's unary chain, outermost first:
// trace, access-log, context-status, server-deadline, panic-recovery.
// The access log sits outside recovery and status mapping so it records the code the
// client receives. A nil accessLog leaves the access log out.
//
//	chain := NewDefaultServerUnaryChain("access-gateway", log, interceptor,
//	    WithRequestTimeout(10*time.Second),
//	    WithAccessLogOptions(WithPrunedFields("credentials")),
//	)
func NewDefaultServerUnaryChain(
	serviceName string,
	log *logger.Logger,
	accessLog *accesslog.Interceptor,
	opts ...ConfigOption,
) *UnaryServerInterceptorChain {
	cfg := NewConfig(serviceName, opts...)
	chain := NewUnaryServerInterceptorChain()

	chain.Push(TraceID, grpctrace.UnaryServerInterceptor(
		grpctrace.WithService(cfg.ServiceName),
		grpctrace.WithUntracedMethods(HealthCheckMethod),
	))
	if accessLog != nil {
		chain.Push(AccessLogID, UnaryAccessLogServerInterceptor(accessLog, cfg.AccessLogOptions...))
	}
	chain.Push(ContextStatusID, UnaryContextStatusInterceptor())
	if cfg.RequestTimeout > 0 {
		chain.Push(ServerDeadlineID, ServerDeadlineInterceptor(cfg.RequestTimeout))
	}
	if cfg.PanicRecoveryEnabled {
		chain.Push(PanicRecoveryID, UnaryPanicRecoveryServerInterceptor(log))
	}

	return chain
}
