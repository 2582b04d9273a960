package gateway

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rainbow-me/access-gateway/common/logger"
	"github.com/rainbow-me/access-gateway/grpc/grpcserver"
	"github.com/rainbow-me/access-gateway/grpc/interceptors"
	"github.com/rainbow-me/access-gateway/grpc/server"
	gatewayhttp "github.com/rainbow-me/access-gateway/http"
	"github.com/rainbow-me/access-gateway/http/accesslog"
	ginmw "github.com/rainbow-me/access-gateway/http/interceptors/gin"
	"github.com/rainbow-me/access-gateway/http/proxy"
	"github.com/rainbow-me/access-gateway/observability"
)

const (
	HealthPath = "/actuator/health"

	statusUp   = "UP"
	statusDown = "DOWN"
)

// Gateway wires the access log, the proxy routes and the management endpoints.
type Gateway struct {
	cfg     Config
	log     *logger.Logger
	metrics *observability.Metrics
	checker *proxy.HealthChecker

	handler http.Handler
	grpc    *grpc.Server
	health  *health.Server
}

type Option func(*Gateway)

// WithMetrics shares a metrics registry, typically in tests.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New builds the gateway from a validated configuration.
func New(cfg Config, log *logger.Logger, opts ...Option) (*Gateway, error) {
	g := &Gateway{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Instance()
	}
	if g.metrics == nil {
		g.metrics = observability.NewMetrics()
	}

	forward, err := proxy.NewHandler(cfg.Routes, nil,
		proxy.WithLogger(g.log),
		proxy.WithErrorRecorder(g.metrics),
	)
	if err != nil {
		return nil, err
	}

	if cfg.UpstreamHealth.URL != "" {
		client := gatewayhttp.NewRestyWithClient(&http.Client{Timeout: cfg.UpstreamHealth.Timeout}, g.log)
		g.checker = proxy.NewHealthChecker(client, cfg.UpstreamHealth.URL)
	}

	g.handler = withCORS(cfg.HTTP.CORS, g.newEngine(forward))
	if cfg.HTTP.TrustForwardedHeaders {
		g.handler = handlers.ProxyHeaders(g.handler)
	}

	if cfg.GRPC.Enabled {
		g.health = health.NewServer()
		chain := interceptors.NewDefaultServerUnaryChain(cfg.ServiceName, g.log, g.newAccessLog(),
			interceptors.WithRequestTimeout(cfg.GRPC.RequestTimeout),
			interceptors.WithAccessLogOptions(interceptors.WithPrunedFields(cfg.GRPC.PrunedFields...)),
		)
		g.grpc = grpcserver.NewServer(chain, cfg.GRPC.Reflection)
		healthpb.RegisterHealthServer(g.grpc, g.health)
	}

	return g, nil
}

func (g *Gateway) newAccessLog() *accesslog.Interceptor {
	return accesslog.NewInterceptor(g.cfg.AccessLog,
		accesslog.WithLogger(g.log),
		accesslog.WithRecorder(g.metrics),
	)
}

// newEngine serves the management endpoints directly; every other path goes through the
// access log chain into the proxy.
func (g *Gateway) newEngine(forward http.Handler) *gin.Engine {
	engine := gin.New()
	engine.GET(HealthPath, g.healthHandler)
	metricsPath := g.cfg.Observability.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	engine.GET(metricsPath, gin.WrapH(g.metrics.Handler()))

	chain := ginmw.DefaultInterceptors(
		ginmw.WithTracingEnabled(g.cfg.Observability.TracingEnabled),
		ginmw.WithTimeout(g.cfg.HTTP.RequestTimeout),
		ginmw.WithAccessLog(g.cfg.AccessLog, accesslog.WithLogger(g.log), accesslog.WithRecorder(g.metrics)),
	)
	engine.NoRoute(append(chain, gin.WrapH(forward))...)
	return engine
}

// Handler is the HTTP handler of the gateway.
func (g *Gateway) Handler() http.Handler { return g.handler }

// GRPCServer returns the gRPC server, or nil when gRPC is disabled.
func (g *Gateway) GRPCServer() *grpc.Server { return g.grpc }

// Metrics returns the registry the gateway reports to.
func (g *Gateway) Metrics() *observability.Metrics { return g.metrics }

// NewServer prepares the listeners. Additional options, such as shutdown hooks, are applied last.
func (g *Gateway) NewServer(opts ...server.Option) (*server.Server, error) {
	serverOpts := []server.Option{
		server.WithLogger(g.log),
		server.WithShutdownTimeout(g.cfg.ShutdownTimeout),
		server.WithHTTPServer("http", g.cfg.HTTP.Address, g.handler,
			server.WithHTTPReadTimeout(g.cfg.HTTP.ReadTimeout),
			server.WithHTTPWriteTimeout(g.cfg.HTTP.WriteTimeout),
		),
	}
	if g.grpc != nil {
		serverOpts = append(serverOpts, server.WithGRPCServer("grpc", g.cfg.GRPC.Address, g.grpc,
			func(*grpc.Server) {
				g.health.SetServingStatus(g.cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)
			}))
	}
	return server.NewServer(append(serverOpts, opts...)...)
}

// healthHandler reports UP, and the upstream probe result when one is configured.
func (g *Gateway) healthHandler(c *gin.Context) {
	body := gin.H{"status": statusUp}
	if g.checker == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	ctx := c.Request.Context()
	if g.cfg.UpstreamHealth.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.UpstreamHealth.Timeout)
		defer cancel()
	}
	if err := g.checker.Check(ctx); err != nil {
		g.log.Warn("upstream health check failed", logger.String("url", g.checker.URL()), logger.Error(err))
		body["status"] = statusDown
		body["upstream"] = gin.H{"status": statusDown, "url": g.checker.URL()}
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["upstream"] = gin.H{"status": statusUp, "url": g.checker.URL()}
	c.JSON(http.StatusOK, body)
}
