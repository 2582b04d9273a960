package interceptors

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/env"
	"github.com/rainbow-me/access-gateway/common/logger"
)

// UnaryPanicRecoveryServerInterceptor turns a panicking handler into a codes.Internal error.
// The panic is logged with its stack and the active span is marked as errored; the client
// never sees the panic value.
func UnaryPanicRecoveryServerInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = logger.Instance()
	}
	return grpcrecovery.UnaryServerInterceptor(
		grpcrecovery.WithRecoveryHandlerContext(func(ctx context.Context, panicValue any) error {
			fields := append(correlation.ToLogFields(ctx), logger.WithPanic(panicValue)...)
			log.Error("recovered from panic in gRPC handler", fields...)
			if env.CurrentOrDefault(env.EnvironmentProduction).IsLocal() {
				// readable stack on the developer console
				_, _ = fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
			}

			if span, ok := tracer.SpanFromContext(ctx); ok {
				span.SetTag(ext.Error, true)
				span.SetTag(ext.ErrorType, "panic")
				span.SetTag(ext.ErrorMsg, codes.Internal.String())
			}

			return status.Error(codes.Internal, "internal server error")
		}),
	)
}
