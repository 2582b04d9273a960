package interceptors

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mennanov/fmutils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/logger"
	"github.com/rainbow-me/access-gateway/http/accesslog"
)

const (
	// GRPCMethod is the exchange method recorded for gRPC calls.
	GRPCMethod = "GRPC"

	// HealthCheckMethod is skipped by the access log unless WithSkippedMethods says otherwise.
	HealthCheckMethod = "/grpc.health.v1.Health/Check"

	messageContentType = "application/json"
)

var correlationMetadataKey = strings.ToLower(correlation.Header)

type accessLogConfig struct {
	skipped map[string]struct{}
	pruned  []string
}

type AccessLogOption func(*accessLogConfig)

// WithSkippedMethods replaces the set of full method names that are not logged.
func WithSkippedMethods(methods ...string) AccessLogOption {
	return func(c *accessLogConfig) {
		c.skipped = make(map[string]struct{}, len(methods))
		for _, m := range methods {
			c.skipped[m] = struct{}{}
		}
	}
}

// WithPrunedFields drops the given protobuf field paths from logged messages before rendering.
func WithPrunedFields(paths ...string) AccessLogOption {
	return func(c *accessLogConfig) {
		c.pruned = append(c.pruned, paths...)
	}
}

// UnaryAccessLogServerInterceptor writes the same access records as the HTTP middleware for
// unary gRPC calls. Metadata is redacted like headers; messages are rendered as protojson,
// bounded to the configured body size and redacted as JSON.
func UnaryAccessLogServerInterceptor(i *accesslog.Interceptor, opts ...AccessLogOption) grpc.UnaryServerInterceptor {
	alc := &accessLogConfig{skipped: map[string]struct{}{HealthCheckMethod: {}}}
	for _, opt := range opts {
		opt(alc)
	}
	cfg := i.Config()
	rules := i.Rules()

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if _, skip := alc.skipped[info.FullMethod]; skip || !cfg.Enabled {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		hdrs := headersFromMetadata(md)
		x := &accesslog.Exchange{
			CorrelationID: correlation.GetOrCreateID(hdrs),
			Username: i.Resolver().ResolveUsername(&http.Request{
				URL:    &url.URL{Path: info.FullMethod},
				Header: hdrs,
			}),
			StartTime: time.Now(),
			Method:    GRPCMethod,
			Path:      info.FullMethod,
		}

		// fails only when the context carries no server stream
		_ = grpc.SetHeader(ctx, metadata.Pairs(correlationMetadataKey, x.CorrelationID))
		callCtx := logger.ContextWithLogger(ctx, i.Logger())
		callCtx = accesslog.ContextWithExchange(callCtx, x)
		callCtx = correlation.Set(callCtx, map[string]string{
			correlation.IDKey:   x.CorrelationID,
			correlation.UserKey: x.Username,
		})
		callCtx = metadata.AppendToOutgoingContext(callCtx, correlationMetadataKey, x.CorrelationID)

		i.Guard(x, "request", func() {
			var logged http.Header
			if cfg.LogHeaders {
				logged = rules.MaskHeaders(hdrs)
			}
			var body []byte
			if cfg.LogRequestBody {
				body = alc.render(i, accesslog.BodyRequest, req)
			}
			i.Emitter().LogRequest(x, logged, body)
		})

		resp, err := handler(callCtx, req)

		i.Guard(x, "response", func() {
			code := int(status.Code(err))
			latency := time.Since(x.StartTime)
			i.Recorder().ObserveExchange(x.Method, code, latency)

			// the caller is gone and nobody will read the response
			if ctx.Err() != nil {
				return
			}

			var body []byte
			if cfg.LogResponseBody && err == nil {
				body = alc.render(i, accesslog.BodyResponse, resp)
			}
			i.Emitter().LogResponse(x, code, latency, nil, body)
		})

		return resp, err
	}
}

// render returns the redacted JSON form of msg, or nil when it is not a loggable message.
func (c *accessLogConfig) render(i *accesslog.Interceptor, direction string, msg any) []byte {
	pb, ok := msg.(proto.Message)
	if !ok || pb == nil || !i.Rules().IsLoggableContentType(messageContentType) {
		return nil
	}
	if len(c.pruned) > 0 {
		pb = proto.Clone(pb)
		fmutils.Prune(pb, c.pruned)
	}
	b, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(pb)
	if err != nil {
		return nil
	}

	limit := i.Config().MaxBodySize
	truncated := len(b) > limit
	if truncated {
		b = b[:limit]
	}
	i.Recorder().ObserveBody(direction, len(b), truncated)
	return i.Rules().MaskBody(messageContentType, b)
}

// headersFromMetadata converts incoming metadata to canonical HTTP headers. Binary
// values are left out.
func headersFromMetadata(md metadata.MD) http.Header {
	h := make(http.Header, len(md))
	for k, values := range md {
		if strings.HasSuffix(k, "-bin") {
			continue
		}
		for _, v := range values {
			h.Add(k, v)
		}
	}
	return h
}
