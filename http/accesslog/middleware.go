package accesslog

import (
	"net/http"
	"sync"
	"time"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/headers"
	"github.com/rainbow-me/access-gateway/common/identity"
	"github.com/rainbow-me/access-gateway/common/logger"
	"github.com/rainbow-me/access-gateway/common/redaction"
)

// Body directions reported to a Recorder.
const (
	BodyRequest  = "request"
	BodyResponse = "response"
)

// Recorder receives exchange measurements, typically to export them as metrics.
type Recorder interface {
	ObserveExchange(method string, status int, latency time.Duration)
	ObserveBody(direction string, size int, truncated bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveExchange(string, int, time.Duration) {}
func (nopRecorder) ObserveBody(string, int, bool)              {}

type options struct {
	log      *logger.Logger
	recorder Recorder
}

type Option func(*options)

// WithLogger sets the logger access records are written to. A child named "access" is used.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRecorder reports exchange measurements to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Middleware logs every exchange passing through next. With Enabled=false it returns next untouched.
func Middleware(cfg Config, opts ...Option) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	i := NewInterceptor(cfg, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			i.ServeHTTP(w, r, next)
		})
	}
}

// Interceptor holds the compiled state shared by every exchange.
type Interceptor struct {
	cfg      Config
	rules    *redaction.Rules
	resolver *identity.Resolver
	emitter  *Emitter
	log      *logger.Logger
	recorder Recorder
}

// NewInterceptor compiles cfg. The result is immutable and safe for concurrent use.
func NewInterceptor(cfg Config, opts ...Option) *Interceptor {
	o := options{recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Instance()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	return &Interceptor{
		cfg:      cfg,
		rules:    cfg.Rules(),
		resolver: identity.NewResolver(cfg.UsernameClaimKeys),
		emitter:  NewEmitter(o.log.Named(logger.AccessLoggerName)),
		log:      o.log,
		recorder: o.recorder,
	}
}

// Rules returns the compiled redaction rules.
func (i *Interceptor) Rules() *redaction.Rules { return i.rules }

// Emitter returns the access log emitter.
func (i *Interceptor) Emitter() *Emitter { return i.emitter }

// Resolver returns the username resolver.
func (i *Interceptor) Resolver() *identity.Resolver { return i.resolver }

// Logger returns the logger handlers of an exchange find in their context.
func (i *Interceptor) Logger() *logger.Logger { return i.log }

// Config returns the settings the interceptor was built with.
func (i *Interceptor) Config() Config { return i.cfg }

// Recorder returns the measurement sink, a no-op when none was configured.
func (i *Interceptor) Recorder() Recorder { return i.recorder }

// ServeHTTP runs one exchange through next.
func (i *Interceptor) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.Handler) {
	x := NewExchange(r, i.resolver)

	r.Header.Set(correlation.Header, x.CorrelationID)
	w.Header().Set(correlation.Header, x.CorrelationID)

	// handlers further down log through the same sink, tagged with the exchange
	ctx := logger.ContextWithLogger(r.Context(), i.log)
	ctx = ContextWithExchange(ctx, x)
	ctx = correlation.Set(ctx, map[string]string{
		correlation.IDKey:   x.CorrelationID,
		correlation.UserKey: x.Username,
	})
	r = r.WithContext(ctx)

	reqBody := i.captureRequest(x, r)
	i.Guard(x, "request", func() {
		var hdrs http.Header
		if i.cfg.LogHeaders {
			hdrs = i.rules.MaskHeaders(r.Header)
		}
		var body []byte
		if reqBody != nil {
			body = i.rules.MaskBody(reqBody.ContentType, reqBody.Bytes)
		}
		i.emitter.LogRequest(x, hdrs, body)
	})

	rec := &responseRecord{i: i, x: x, r: r}
	rec.w = newResponseCapture(w, i.cfg.MaxBodySize, rec.onHeader)

	next.ServeHTTP(rec.w, r)

	rec.emit()
}

// captureRequest buffers the request body when it is to be logged and replaces it with the
// retained bytes. It returns nil when the body is not logged.
func (i *Interceptor) captureRequest(x *Exchange, r *http.Request) *CapturedBody {
	contentType := r.Header.Get(headers.HeaderContentType)
	if !i.cfg.LogRequestBody || !hasBody(r) || !i.rules.IsLoggableContentType(contentType) {
		return nil
	}

	captured, _, err := Capture(r.Body, i.cfg.MaxBodySize)
	if err != nil {
		i.log.Warn("failed to read request body for access log",
			logger.String(correlation.IDKey, x.CorrelationID),
			logger.Error(err),
		)
	}
	captured.ContentType = contentType
	setRequestBody(r, captured.Bytes)
	i.Guard(x, "request", func() {
		i.recorder.ObserveBody(BodyRequest, len(captured.Bytes), captured.Truncated)
	})
	return &captured
}

// Guard runs fn and keeps a failure in the logging path from affecting the exchange.
func (i *Interceptor) Guard(x *Exchange, stage string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			fields := append([]logger.Field{
				logger.String(correlation.IDKey, x.CorrelationID),
				logger.String("stage", stage),
			}, logger.WithPanic(rec)...)
			i.log.Error("access log failed", fields...)
		}
	}()
	fn()
}

// responseRecord decides when the response line of one exchange is written.
type responseRecord struct {
	i    *Interceptor
	x    *Exchange
	r    *http.Request
	w    *responseCapture
	once sync.Once
}

func (rec *responseRecord) onHeader(int) {
	contentType := rec.w.Header().Get(headers.HeaderContentType)
	if rec.i.cfg.LogResponseBody && rec.i.rules.IsLoggableContentType(contentType) {
		rec.w.capture = true
		return
	}
	rec.emit()
}

func (rec *responseRecord) emit() {
	rec.once.Do(func() {
		rec.i.Guard(rec.x, "response", func() {
			status := rec.w.Status()
			latency := time.Since(rec.x.StartTime)
			rec.i.recorder.ObserveExchange(rec.x.Method, status, latency)

			// the caller is gone and nobody will read the response
			if rec.r.Context().Err() != nil {
				return
			}

			var hdrs http.Header
			if rec.i.cfg.LogHeaders {
				hdrs = rec.i.rules.MaskHeaders(rec.w.Header())
			}
			var body []byte
			if rec.w.capture {
				rec.i.recorder.ObserveBody(BodyResponse, rec.w.body.Len(), rec.w.truncated)
				body = rec.i.rules.MaskBody(rec.w.Header().Get(headers.HeaderContentType), rec.w.body.Bytes())
			}
			rec.i.emitter.LogResponse(rec.x, status, latency, hdrs, body)
		})
	})
}
