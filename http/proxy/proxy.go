// Package proxy forwards gateway requests to upstream services by path prefix.
package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"

	httptrace "github.com/DataDog/dd-trace-go/contrib/net/http/v2"
	"github.com/cockroachdb/errors"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/logger"
)

// ErrorRecorder counts failed upstream round trips per route.
type ErrorRecorder interface {
	UpstreamError(route string)
}

type options struct {
	log       *logger.Logger
	transport http.RoundTripper
	errors    ErrorRecorder
}

type Option func(*options)

func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithTransport replaces the traced default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

func WithErrorRecorder(r ErrorRecorder) Option {
	return func(o *options) {
		o.errors = r
	}
}

// NewHandler returns a handler forwarding matched requests to their route's upstream.
// Requests matching no route are passed to next, or answered 404 when next is nil.
// A failed round trip is answered with 502 Bad Gateway.
func NewHandler(routes []Route, next http.Handler, opts ...Option) (http.Handler, error) {
	if err := Validate(routes); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Instance()
	}
	if o.transport == nil {
		o.transport = httptrace.WrapRoundTripper(http.DefaultTransport.(*http.Transport).Clone())
	}
	if next == nil {
		next = http.NotFoundHandler()
	}

	proxies := make(map[string]http.Handler, len(routes))
	for _, route := range routes {
		p, err := newReverseProxy(route, o)
		if err != nil {
			return nil, err
		}
		proxies[route.Name] = p
	}

	rt := newRouter(routes)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, ok := rt.match(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if b.route.StripPrefix {
			r = r.Clone(r.Context())
			r.URL.Path = stripPathPrefix(r.URL.Path, b.prefix)
			r.URL.RawPath = ""
		}
		proxies[b.route.Name].ServeHTTP(w, r)
	}), nil
}

func newReverseProxy(route Route, o options) (*httputil.ReverseProxy, error) {
	target, err := parseUpstream(route)
	if err != nil {
		return nil, err
	}
	log := o.log.With(logger.String("route", route.Name), logger.String("upstream", route.Upstream))

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: o.transport,
		ModifyResponse: func(resp *http.Response) error {
			// the gateway already answers with the exchange's correlation id
			resp.Header.Del(correlation.Header)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, proxyErr error) {
			fields := append(correlation.ToLogFields(r.Context()),
				logger.String("path", r.URL.Path),
				logger.Error(proxyErr),
			)
			if errors.Is(proxyErr, context.Canceled) {
				log.Warn("caller went away before upstream answered", fields...)
			} else {
				log.Error("upstream request failed", fields...)
				if o.errors != nil {
					o.errors.UpstreamError(route.Name)
				}
			}
			http.Error(w, "upstream request failed", http.StatusBadGateway)
		},
	}, nil
}
