package accesslog

import (
	"context"
	"net/http"
	"time"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/identity"
)

// AnonymousUser is rendered when no username could be resolved.
const AnonymousUser = "-"

// Exchange identifies one request/response pair in the access log.
type Exchange struct {
	CorrelationID string
	// Username is empty when it could not be resolved.
	Username  string
	StartTime time.Time
	Method    string
	Path      string
	Query     string
}

// NewExchange resolves the correlation id and username for an inbound request.
func NewExchange(r *http.Request, resolver *identity.Resolver) *Exchange {
	x := &Exchange{
		CorrelationID: correlation.GetOrCreateID(r.Header),
		StartTime:     time.Now(),
		Method:        r.Method,
	}
	if resolver != nil {
		x.Username = resolver.ResolveUsername(r)
	}
	if r.URL != nil {
		x.Path = r.URL.Path
		x.Query = r.URL.RawQuery
	}
	return x
}

// User returns the username or AnonymousUser.
func (x *Exchange) User() string {
	if x.Username == "" {
		return AnonymousUser
	}
	return x.Username
}

// Target is the path followed by the raw query when there is one.
func (x *Exchange) Target() string {
	if x.Query == "" {
		return x.Path
	}
	return x.Path + "?" + x.Query
}

type exchangeKey struct{}

// ContextWithExchange stores the exchange so downstream handlers can read it.
func ContextWithExchange(ctx context.Context, x *Exchange) context.Context {
	return context.WithValue(ctx, exchangeKey{}, x)
}

// FromContext returns the exchange stored by the middleware, if any.
func FromContext(ctx context.Context) (*Exchange, bool) {
	x, ok := ctx.Value(exchangeKey{}).(*Exchange)
	return x, ok && x != nil
}
