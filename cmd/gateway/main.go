package main

import (
	"context"
	"log"

	"github.com/cockroachdb/errors"

	"github.com/rainbow-me/access-gateway/common/env"
	"github.com/rainbow-me/access-gateway/common/logger"
	"github.com/rainbow-me/access-gateway/grpc/server"
	"github.com/rainbow-me/access-gateway/observability"
	"github.com/rainbow-me/access-gateway/pkg/gateway"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	l, err := logger.InitLogger()
	if err != nil {
		return err
	}
	logger.SetInstance(l)

	cfg, err := gateway.Load(l)
	if err != nil {
		return err
	}

	hooks := []server.Option{
		server.WithShutdownHook(server.ShutdownHook{
			Name:     "logger",
			Priority: 100,
			Hook: func(context.Context) error {
				// stderr/stdout sinks return EINVAL on sync
				_ = l.Sync()
				return nil
			},
		}),
	}

	if cfg.Observability.TracingEnabled {
		currentEnv := env.CurrentOrDefault(env.EnvironmentLocal)
		stop := observability.InitObservability(cfg.ServiceName, currentEnv.String(), l,
			observability.WithAgentAddr(cfg.Observability.AgentAddr),
			observability.WithDebugStack(currentEnv.IsLocal()),
		)
		hooks = append(hooks, server.WithShutdownHook(server.ShutdownHook{
			Name:     "tracer",
			Priority: 10,
			Hook: func(context.Context) error {
				stop()
				return nil
			},
		}))
	}

	g, err := gateway.New(cfg, l)
	if err != nil {
		return errors.Wrap(err, "failed to build gateway")
	}

	srv, err := g.NewServer(hooks...)
	if err != nil {
		return errors.Wrap(err, "failed to build server")
	}
	l.Info("starting access gateway",
		logger.String("service", cfg.ServiceName),
		logger.String("http", cfg.HTTP.Address),
		logger.Bool("grpc", cfg.GRPC.Enabled),
		logger.Int("routes", len(cfg.Routes)),
		logger.Duration("shutdownTimeout", cfg.ShutdownTimeout),
	)
	for _, route := range cfg.Routes {
		l.Info("route", logger.String("name", route.Name),
			logger.String("upstream", route.Upstream),
			logger.Strings("prefixes", route.Prefixes),
		)
	}
	return srv.Serve()
}
