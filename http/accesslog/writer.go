package accesslog

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
)

// responseCapture passes every byte through to the caller while keeping up to limit
// bytes of the body for logging. onHeader runs once, right after the final status is written.
type responseCapture struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
	onHeader    func(status int)

	capture   bool
	limit     int
	body      bytes.Buffer
	truncated bool
	written   int64
}

func newResponseCapture(w http.ResponseWriter, limit int, onHeader func(status int)) *responseCapture {
	return &responseCapture{ResponseWriter: w, limit: limit, onHeader: onHeader}
}

func (w *responseCapture) WriteHeader(status int) {
	// informational responses are forwarded but do not settle the status
	if status >= 100 && status < 200 && status != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(status)
		return
	}
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	w.ResponseWriter.WriteHeader(status)
	if w.onHeader != nil {
		w.onHeader(status)
	}
}

func (w *responseCapture) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.capture {
		w.keep(p)
	}
	n, err := w.ResponseWriter.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *responseCapture) keep(p []byte) {
	room := w.limit - w.body.Len()
	if room <= 0 {
		if len(p) > 0 {
			w.truncated = true
		}
		return
	}
	if len(p) > room {
		w.body.Write(p[:room])
		w.truncated = true
		return
	}
	w.body.Write(p)
}

// Status returns the status sent to the caller, 200 when the handler never set one.
func (w *responseCapture) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *responseCapture) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseCapture) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

func (w *responseCapture) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseCapture) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
