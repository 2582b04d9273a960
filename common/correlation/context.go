package correlation

import (
	"context"
	"maps"
	"net/http"
	"strings"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/google/uuid"

	"github.com/rainbow-me/access-gateway/common/headers"
	"github.com/rainbow-me/access-gateway/common/logger"
)

// Standard correlation keys
const (
	IDKey   = "correlation_id"
	UserKey = "user"
)

// Header is the HTTP/gRPC header carrying the correlation id
const Header = headers.HeaderXCorrelationID

// correlationContextKey is a private type for context keys to avoid collisions
type correlationContextKey struct{}

// Key is the context key for storing correlation data
var Key = correlationContextKey{}

// Data represents the correlation values attached to one exchange
type Data map[string]string

// GetOrCreateID returns the inbound correlation id when present and non-blank, otherwise a fresh UUID.
func GetOrCreateID(h http.Header) string {
	if h != nil {
		if id := strings.TrimSpace(h.Get(Header)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// Set adds correlation values to a context, returning a new context.
// - Derives new context; doesn't modify input context or values map.
// - Empty keys and values are skipped.
// - Stored map is mutable; treat as read-only.
func Set(ctx context.Context, values map[string]string) context.Context {
	if len(values) == 0 {
		return ctx
	}

	data := maps.Clone(Get(ctx))
	for k, v := range values {
		if k != "" && v != "" {
			data[k] = v
		}
	}

	// baggage travels with the span so traces can be searched by correlation id
	if span, ok := tracer.SpanFromContext(ctx); ok {
		for k, v := range data {
			span.SetBaggageItem(k, v)
		}
	}

	ctx = context.WithValue(ctx, Key, data)
	return logger.ContextWithFields(ctx, toLogFields(values)...)
}

// Get returns the correlation data from the context.
// Returns an empty map if no correlation data exists.
func Get(ctx context.Context) Data {
	if ctx == nil {
		return make(Data)
	}
	if v, ok := ctx.Value(Key).(Data); ok && v != nil {
		return v
	}
	return make(Data)
}

// GetValue returns a specific correlation value by key.
func GetValue(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	return Get(ctx)[key]
}

// ID returns the correlation id stored in the context, or "".
func ID(ctx context.Context) string {
	return GetValue(ctx, IDKey)
}

// SetID stores the correlation id in the context.
func SetID(ctx context.Context, correlationID string) context.Context {
	return Set(ctx, map[string]string{IDKey: correlationID})
}

// ToLogFields converts the correlation context to log fields.
func ToLogFields(ctx context.Context) []logger.Field {
	return toLogFields(Get(ctx))
}

func toLogFields(data map[string]string) []logger.Field {
	if len(data) == 0 {
		return nil
	}
	fields := make([]logger.Field, 0, len(data))
	for key, value := range data {
		if key != "" && value != "" {
			fields = append(fields, logger.String(key, value))
		}
	}
	return fields
}
