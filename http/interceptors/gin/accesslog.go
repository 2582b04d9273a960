package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/access-gateway/http/accesslog"
)

// accessLogWriter routes gin's writes through the access log capture while keeping
// gin's own bookkeeping (Status, Size, Written) on the original writer. Like gin's writer it
// holds the status back until the first body write, so the content type set by c.Render
// after c.Status is known when the capture decides whether to keep the body.
type accessLogWriter struct {
	gin.ResponseWriter
	capture http.ResponseWriter
	flushed bool
}

func (w *accessLogWriter) WriteHeader(code int) {
	if w.flushed {
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

// WriteHeaderNow hands the pending status to the capture.
func (w *accessLogWriter) WriteHeaderNow() {
	if w.flushed {
		return
	}
	w.flushed = true
	w.capture.WriteHeader(w.ResponseWriter.Status())
	w.ResponseWriter.WriteHeaderNow()
}

func (w *accessLogWriter) Write(data []byte) (int, error) {
	w.WriteHeaderNow()
	return w.capture.Write(data)
}

func (w *accessLogWriter) WriteString(s string) (int, error) {
	w.WriteHeaderNow()
	return w.capture.Write([]byte(s))
}

func (w *accessLogWriter) Flush() {
	w.WriteHeaderNow()
	if flusher, ok := w.capture.(http.Flusher); ok {
		flusher.Flush()
	}
}

// AccessLog logs every exchange handled by the rest of the chain. A disabled config yields a pass-through.
func AccessLog(cfg accesslog.Config, opts ...accesslog.Option) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return AccessLogMiddleware(accesslog.NewInterceptor(cfg, opts...))
}

// AccessLogMiddleware runs the rest of the gin chain inside the interceptor.
func AccessLogMiddleware(interceptor *accesslog.Interceptor) gin.HandlerFunc {
	return func(c *gin.Context) {
		original := c.Writer
		interceptor.ServeHTTP(c.Writer, c.Request, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			writer := &accessLogWriter{ResponseWriter: original, capture: w}
			c.Writer = writer
			defer func() { c.Writer = original }()
			c.Next()
			// gin sends a bodyless status only once the chain has returned
			writer.WriteHeaderNow()
		}))
	}
}
