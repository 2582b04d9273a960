package gin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/access-gateway/http/accesslog"
)

const (
	httpHandlerOp = "http.handler"
	componentName = "gin"
)

type interceptorCfg struct {
	TracingEnabled bool
	AccessLog      accesslog.Config
	AccessLogOpts  []accesslog.Option
	Timeout        time.Duration
}

type InterceptorOpt func(cfg *interceptorCfg)

// WithAccessLog sets the access log configuration. Default is accesslog.DefaultConfig().
func WithAccessLog(cfg accesslog.Config, opts ...accesslog.Option) InterceptorOpt {
	return func(c *interceptorCfg) {
		c.AccessLog = cfg
		c.AccessLogOpts = append(c.AccessLogOpts, opts...)
	}
}

// WithTimeout sets the http handler timeout. Default is 1 minute, zero disables it.
func WithTimeout(timeout time.Duration) InterceptorOpt {
	return func(cfg *interceptorCfg) {
		cfg.Timeout = timeout
	}
}

// WithTracingEnabled enables/disables tracing. Default is enabled.
func WithTracingEnabled(enabled bool) InterceptorOpt {
	return func(cfg *interceptorCfg) {
		cfg.TracingEnabled = enabled
	}
}

// DefaultInterceptors returns the gateway middleware chain for Gin engines.
// The access log wraps recovery so a recovered panic is still logged with its 500.
// Defaults can be changed by passing any of the WithXXX options.
func DefaultInterceptors(opts ...InterceptorOpt) []gin.HandlerFunc {
	cfg := &interceptorCfg{
		TracingEnabled: true,
		AccessLog:      accesslog.DefaultConfig(),
		Timeout:        time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var middlewares []gin.HandlerFunc
	if cfg.TracingEnabled {
		middlewares = append(middlewares, TracingMiddleware)
	}
	middlewares = append(middlewares,
		AccessLog(cfg.AccessLog, cfg.AccessLogOpts...),
		PanicRecoveryMiddleware,
		ErrorHandlingMiddleware,
		TimeoutMiddleware(cfg.Timeout),
	)
	return middlewares
}
