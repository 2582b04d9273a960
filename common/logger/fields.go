package logger

import (
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
)

// WithTrace returns the Datadog correlation fields so log lines can be joined with APM spans.
func WithTrace(spanCtx *tracer.SpanContext) []Field {
	if spanCtx == nil {
		return nil
	}
	return []Field{
		String("dd.trace_id", spanCtx.TraceID()),
		String("dd.span_id", strconv.FormatUint(spanCtx.SpanID(), 10)),
	}
}

// WithPanic describes a recovered panic value together with the stack at the recovery site.
func WithPanic(recovered any) []Field {
	return []Field{
		String("panic", fmt.Sprint(recovered)),
		ByteString("stack", debug.Stack()),
	}
}
