package grpcserver

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/access-gateway/grpc/interceptors"
)

// DefaultGRPCMaxMsgSize is the largest message in bytes the server receives or sends.
const DefaultGRPCMaxMsgSize = 1024 * 1024 * 10 // 10MB

// NewServer creates a gRPC server running unaryChain around every unary call, with message
// limits, keepalive enforcement and an Unimplemented answer for unknown services.
// serverOptions are applied last and may override the defaults. Reflection is registered
// when enableReflection is set so tools such as grpcurl can list services.
//
//	chain := interceptors.NewDefaultServerUnaryChain("access-gateway", log, accessLog)
//	srv := grpcserver.NewServer(chain, false)
//	healthpb.RegisterHealthServer(srv, health.NewServer())
func NewServer(
	unaryChain *interceptors.UnaryServerInterceptorChain,
	enableReflection bool,
	serverOptions ...grpc.ServerOption,
) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.UnknownServiceHandler(func(any, grpc.ServerStream) error {
			return status.Error(codes.Unimplemented, "unknown route")
		}),
		grpc.MaxRecvMsgSize(DefaultGRPCMaxMsgSize),
		grpc.MaxSendMsgSize(DefaultGRPCMaxMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if unaryChain != nil {
		opts = append(opts, grpc.UnaryInterceptor(unaryChain.Commit()))
	}
	opts = append(opts, serverOptions...)

	srv := grpc.NewServer(opts...)
	if enableReflection {
		reflection.Register(srv)
	}
	return srv
}
