package interceptors

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServerDeadlineInterceptor bounds every call to timeout. A shorter client deadline still wins.
func ServerDeadlineInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return handler(ctx, req)
	}
}

// contextStatusError carries a gRPC status while keeping the context error reachable by errors.Is.
type contextStatusError struct {
	*status.Status
	error
}

func (e *contextStatusError) GRPCStatus() *status.Status { return e.Status }

func (e *contextStatusError) Unwrap() error { return e.error }

// UnaryContextStatusInterceptor maps context.Canceled and context.DeadlineExceeded returned
// by a handler to codes.Canceled and codes.DeadlineExceeded, so they are not logged as Unknown.
func UnaryContextStatusInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		resp, err := handler(ctx, req)
		switch {
		case err == nil:
			return resp, nil
		case errors.Is(err, context.Canceled):
			return resp, &contextStatusError{Status: status.New(codes.Canceled, "context canceled"), error: err}
		case errors.Is(err, context.DeadlineExceeded):
			return resp, &contextStatusError{Status: status.New(codes.DeadlineExceeded, "deadline exceeded"), error: err}
		default:
			return resp, err
		}
	}
}
