package observability

import (
	"context"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/logger"
)

// StartSpan should be used instead of tracer.StartSpanFromContext so the context logger picks up the
// trace and span ids, and the span carries the correlation id of the exchange when there is one.
func StartSpan(ctx context.Context, opName string, opts ...tracer.StartSpanOption) (*tracer.Span, context.Context) {
	if id := correlation.ID(ctx); id != "" {
		opts = append(opts, tracer.Tag(correlation.IDKey, id))
	}
	span, ctx := tracer.StartSpanFromContext(ctx, opName, opts...)
	ctx = logger.ContextWithFields(ctx, logger.WithTrace(span.Context())...)
	return span, ctx
}
