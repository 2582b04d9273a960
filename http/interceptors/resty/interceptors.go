package resty

import (
	"fmt"
	"net/url"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/logger"
)

const (
	httpRequestOp      = "http.request"
	restyComponentName = "resty"
)

type interceptorCfg struct {
	TracingEnabled     bool
	CorrelationEnabled bool
	// no timeout specified, that is handled by the underlying http client config
}

type InterceptorOpt func(*interceptorCfg)

// WithCorrelationEnabled enables/disables correlation. Default is enabled.
func WithCorrelationEnabled(enabled bool) InterceptorOpt {
	return func(cfg *interceptorCfg) {
		cfg.CorrelationEnabled = enabled
	}
}

// WithTracingEnabled enables/disables tracing. Default is enabled.
func WithTracingEnabled(enabled bool) InterceptorOpt {
	return func(cfg *interceptorCfg) {
		cfg.TracingEnabled = enabled
	}
}

// InjectInterceptors injects all interceptors required to get Resty requests to propagate traces and correlation ids.
// Default behaviour can be changed by passing any of the WithXXX options.
func InjectInterceptors(client *resty.Client, opts ...InterceptorOpt) {
	cfg := &interceptorCfg{
		TracingEnabled:     true,
		CorrelationEnabled: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.TracingEnabled {
		before, after, onError := TracingMiddleware()
		client.OnBeforeRequest(before)
		client.OnAfterResponse(after)
		client.OnError(onError)
	}
	if cfg.CorrelationEnabled {
		client.OnBeforeRequest(CorrelationMiddleware())
	}
}

// TracingMiddleware propagates traces from context to http headers.
// Also, creates a new span and tags it with the http method, url, status code etc.
// The span is finished by the response hook, or by the error hook when no response arrived.
func TracingMiddleware() (resty.RequestMiddleware, resty.ResponseMiddleware, resty.ErrorHook) {
	beforeRequest := func(_ *resty.Client, req *resty.Request) error {
		opts := []tracer.StartSpanOption{
			tracer.SpanType(ext.SpanTypeHTTP),
			tracer.Tag(ext.HTTPMethod, req.Method),
			tracer.Tag(ext.HTTPURL, req.URL),
			tracer.Tag(ext.Component, restyComponentName),
			tracer.Tag(ext.SpanKind, ext.SpanKindClient),
		}
		if parsedURL, err := url.Parse(req.URL); err == nil {
			opts = append(opts,
				tracer.Tag(ext.NetworkDestinationName, parsedURL.Hostname()),
				tracer.Tag("http.host", parsedURL.Host),
				tracer.Tag("http.path", parsedURL.Path),
			)
		}

		span, ctx := tracer.StartSpanFromContext(req.Context(), httpRequestOp, opts...)
		req.SetContext(ctx)

		if err := tracer.Inject(span.Context(), tracer.HTTPHeadersCarrier(req.Header)); err != nil {
			// this should never happen
			logger.FromContext(ctx).Warn("failed to inject trace header", logger.Error(err))
		}
		return nil
	}

	afterResponse := func(_ *resty.Client, resp *resty.Response) error {
		span, ok := tracer.SpanFromContext(resp.Request.Context())
		if !ok {
			return nil // No span found, skip
		}
		span.SetTag(ext.HTTPCode, resp.StatusCode())
		span.SetTag("http.response_size", len(resp.Body()))

		if resp.StatusCode() >= 400 {
			span.SetTag(ext.Error, true)
			span.SetTag(ext.ErrorMsg, fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.Status()))
		}
		span.Finish()

		return nil
	}

	onError := func(req *resty.Request, err error) {
		// resty wraps transport failures too; only a received response went through afterResponse
		var respErr *resty.ResponseError
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.RawResponse != nil {
			return
		}
		if span, ok := tracer.SpanFromContext(req.Context()); ok {
			span.Finish(tracer.WithError(err))
		}
	}

	return beforeRequest, afterResponse, onError
}

// CorrelationMiddleware forwards the correlation id of the calling exchange, when there is one.
func CorrelationMiddleware() resty.RequestMiddleware {
	return func(_ *resty.Client, req *resty.Request) error {
		if id := correlation.ID(req.Context()); id != "" {
			req.SetHeader(correlation.Header, id)
		}
		return nil
	}
}
