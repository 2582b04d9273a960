package accesslog

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/logger"
)

const (
	DirectionRequest  = "->"
	DirectionResponse = "<-"
)

// Emitter formats exchanges into single-line access log records.
// Headers and bodies must already be redacted; nil means the part is omitted.
type Emitter struct {
	log *logger.Logger
}

// NewEmitter writes records to log, which should be the access log sink.
func NewEmitter(log *logger.Logger) *Emitter {
	if log == nil {
		log = logger.Instance().Named(logger.AccessLoggerName)
	}
	return &Emitter{log: log}
}

// LogRequest writes the request line and, when a body was captured, the request body line.
func (e *Emitter) LogRequest(x *Exchange, headers http.Header, body []byte) {
	var b strings.Builder
	b.WriteString(prefix(x))
	b.WriteString(" " + DirectionRequest + " ")
	b.WriteString(x.Method)
	b.WriteString(" ")
	b.WriteString(x.Target())
	if headers != nil {
		b.WriteString(" Headers: ")
		b.WriteString(fmt.Sprint(headers))
	}
	e.write(x, DirectionRequest, b.String())

	if len(body) > 0 {
		e.write(x, DirectionRequest, prefix(x)+" "+DirectionRequest+" BODY: "+string(body))
	}
}

// LogResponse writes the response line with status, latency and the optional headers and body.
func (e *Emitter) LogResponse(x *Exchange, status int, latency time.Duration, headers http.Header, body []byte) {
	var b strings.Builder
	b.WriteString(prefix(x))
	fmt.Fprintf(&b, " %s %d %d ms", DirectionResponse, status, latency.Milliseconds())
	if headers != nil {
		b.WriteString(" Headers: ")
		b.WriteString(fmt.Sprint(headers))
	}
	if len(body) > 0 {
		b.WriteString(" BODY: ")
		b.Write(body)
	}
	e.write(x, DirectionResponse, b.String(),
		logger.Int("status", status),
		logger.Int64("latency_ms", latency.Milliseconds()),
	)
}

func (e *Emitter) write(x *Exchange, direction, line string, extra ...logger.Field) {
	fields := append([]logger.Field{
		logger.String(correlation.IDKey, x.CorrelationID),
		logger.String(correlation.UserKey, x.User()),
		logger.String("direction", direction),
	}, extra...)
	e.log.Info(NormalizeToSingleLine(line), fields...)
}

func prefix(x *Exchange) string {
	return "[" + x.CorrelationID + "][user=" + x.User() + "]"
}

// NormalizeToSingleLine replaces control characters with spaces, collapses runs of spaces and trims.
func NormalizeToSingleLine(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		if unicode.IsControl(r) || r == ' ' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
