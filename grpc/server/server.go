package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"

	"github.com/rainbow-me/access-gateway/common/logger"
)

// ErrNoServers is returned by Serve when no server was configured.
var ErrNoServers = errors.New("no servers configured")

// Server runs a set of HTTP and gRPC servers and shuts them down together.
type Server struct {
	httpConfigs     []HTTPConfig
	grpcConfigs     []GRPCConfig
	hooks           ShutdownHooks
	shutdownTimeout time.Duration
	signalHandling  bool
	log             *logger.Logger

	mu          sync.Mutex
	addrs       map[string]net.Addr
	httpServers map[string]*http.Server
	grpcServers map[string]*grpc.Server
	ready       chan struct{}
	stop        chan struct{}
	stopOnce    sync.Once
}

type Option func(*Server) error

// WithHTTPServer adds an HTTP server.
func WithHTTPServer(name, address string, handler http.Handler, opts ...HTTPConfigOption) Option {
	return func(s *Server) error {
		if handler == nil {
			return errors.Newf("http server %q has no handler", name)
		}
		s.httpConfigs = append(s.httpConfigs, newHTTPConfig(name, address, handler, opts...))
		return nil
	}
}

// WithGRPCServer adds a gRPC server. When srv is nil one is created from grpcOpts; setup registers the services.
func WithGRPCServer(name, address string, srv *grpc.Server, setup func(*grpc.Server), grpcOpts ...grpc.ServerOption) Option {
	return func(s *Server) error {
		if setup == nil {
			return errors.Newf("grpc server %q has no setup function", name)
		}
		s.grpcConfigs = append(s.grpcConfigs, GRPCConfig{
			Name:       name,
			Address:    address,
			GRPCServer: srv,
			SetupFunc:  setup,
			GRPCOpts:   grpcOpts,
		})
		return nil
	}
}

// WithShutdownTimeout bounds how long servers get to drain. Default is 30 seconds.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		s.shutdownTimeout = timeout
		return nil
	}
}

// WithShutdownHook registers a function run after the servers stopped.
func WithShutdownHook(hook ShutdownHook) Option {
	return func(s *Server) error {
		if hook.Hook == nil {
			return errors.Newf("shutdown hook %q has no function", hook.Name)
		}
		s.hooks = append(s.hooks, hook)
		return nil
	}
}

// WithSignalHandling enables/disables stopping on SIGINT and SIGTERM. Default enabled.
func WithSignalHandling(enabled bool) Option {
	return func(s *Server) error {
		s.signalHandling = enabled
		return nil
	}
}

// WithLogger sets the lifecycle logger. Default is the process-wide logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Server) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// NewServer validates the options. Server names and fixed addresses must be unique.
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		shutdownTimeout: DefaultShutdownTimeout,
		signalHandling:  true,
		addrs:           make(map[string]net.Addr),
		httpServers:     make(map[string]*http.Server),
		grpcServers:     make(map[string]*grpc.Server),
		ready:           make(chan struct{}),
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.log == nil {
		s.log = logger.Instance()
	}

	names := make(map[string]struct{})
	addresses := make(map[string]struct{})
	check := func(name, address string) error {
		if _, dup := names[name]; dup {
			return errors.Newf("duplicate server name %q", name)
		}
		names[name] = struct{}{}
		if _, port, err := net.SplitHostPort(address); err == nil && port == "0" {
			return nil
		}
		if _, dup := addresses[address]; dup {
			return errors.Newf("duplicate server address %q", address)
		}
		addresses[address] = struct{}{}
		return nil
	}
	for _, c := range s.httpConfigs {
		if err := check(c.Name, c.Address); err != nil {
			return nil, err
		}
	}
	for _, c := range s.grpcConfigs {
		if err := check(c.Name, c.Address); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Serve listens on every configured address and blocks until Stop is called, a signal arrives
// or one of the servers fails. It then shuts everything down and runs the shutdown hooks.
func (s *Server) Serve() error {
	if len(s.httpConfigs) == 0 && len(s.grpcConfigs) == 0 {
		return ErrNoServers
	}

	listeners, err := s.listen()
	if err != nil {
		return err
	}

	errCh := make(chan error, len(listeners))
	for _, c := range s.httpConfigs {
		srv := &http.Server{
			Handler:           c.Handler,
			ReadTimeout:       c.ReadTimeout,
			WriteTimeout:      c.WriteTimeout,
			IdleTimeout:       c.IdleTimeout,
			ReadHeaderTimeout: c.HeaderTimeout,
		}
		s.mu.Lock()
		s.httpServers[c.Name] = srv
		s.mu.Unlock()

		go func(name string, lis net.Listener) {
			s.log.Info("HTTP server listening", logger.String("server", name), logger.String("addr", lis.Addr().String()))
			if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- errors.Wrapf(err, "http server %s", name)
			}
		}(c.Name, listeners[c.Name])
	}
	for _, c := range s.grpcConfigs {
		srv := c.GRPCServer
		if srv == nil {
			srv = grpc.NewServer(c.GRPCOpts...)
		}
		c.SetupFunc(srv)
		s.mu.Lock()
		s.grpcServers[c.Name] = srv
		s.mu.Unlock()

		go func(name string, lis net.Listener) {
			s.log.Info("gRPC server listening", logger.String("server", name), logger.String("addr", lis.Addr().String()))
			if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- errors.Wrapf(err, "grpc server %s", name)
			}
		}(c.Name, listeners[c.Name])
	}
	close(s.ready)

	var sigCh chan os.Signal
	if s.signalHandling {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	var serveErr error
	select {
	case <-s.stop:
		s.log.Info("Stop requested")
	case sig := <-sigCh:
		s.log.Info("Received signal", logger.String("signal", sig.String()))
	case serveErr = <-errCh:
		s.log.Error("Server failed", logger.Error(serveErr))
	}

	return errors.Join(serveErr, s.shutdown())
}

func (s *Server) listen() (map[string]net.Listener, error) {
	listeners := make(map[string]net.Listener)
	closeAll := func() {
		for _, l := range listeners {
			_ = l.Close()
		}
	}
	addresses := make([][2]string, 0, len(s.httpConfigs)+len(s.grpcConfigs))
	for _, c := range s.httpConfigs {
		addresses = append(addresses, [2]string{c.Name, c.Address})
	}
	for _, c := range s.grpcConfigs {
		addresses = append(addresses, [2]string{c.Name, c.Address})
	}
	for _, a := range addresses {
		lis, err := net.Listen("tcp", a[1])
		if err != nil {
			closeAll()
			return nil, errors.Wrapf(err, "listen %s on %s", a[0], a[1])
		}
		listeners[a[0]] = lis
		s.mu.Lock()
		s.addrs[a[0]] = lis.Addr()
		s.mu.Unlock()
	}
	return listeners, nil
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, srv := range s.httpServers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, errors.Wrapf(err, "shutdown http server %s", name))
		}
	}
	for name, srv := range s.grpcServers {
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.log.Warn("gRPC graceful stop timed out, forcing", logger.String("server", name))
			srv.Stop()
		}
	}
	if err := s.hooks.run(ctx, s.log); err != nil {
		errs = append(errs, err)
	}
	s.log.Info("Servers stopped")
	return errors.Join(errs...)
}

// Stop asks Serve to shut everything down. It is safe to call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Ready is closed once every listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address of the named server, nil before Ready.
func (s *Server) Addr(name string) net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addrs[name]
}
