package accesslog

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
)

// CapturedBody holds at most maxBodySize bytes of a request or response body.
type CapturedBody struct {
	Bytes       []byte
	ContentType string
	// Truncated is set when bytes past the limit were discarded.
	Truncated bool
}

// Capture reads at most maxBytes from body, drains and discards the rest and closes it.
// The returned reader replays the retained bytes. On a read error the bytes read so far
// are still returned together with the error.
func Capture(body io.ReadCloser, maxBytes int) (CapturedBody, io.ReadCloser, error) {
	if body == nil || body == http.NoBody {
		return CapturedBody{}, http.NoBody, nil
	}
	defer body.Close()

	if maxBytes < 0 {
		maxBytes = 0
	}

	var buf bytes.Buffer
	_, err := io.Copy(&buf, io.LimitReader(body, int64(maxBytes)))
	captured := CapturedBody{Bytes: buf.Bytes()}
	if err != nil {
		return captured, replay(captured.Bytes), errors.Wrap(err, "read body")
	}

	discarded, err := io.Copy(io.Discard, body)
	captured.Truncated = discarded > 0
	if err != nil {
		captured.Truncated = true
		return captured, replay(captured.Bytes), errors.Wrap(err, "drain body")
	}
	return captured, replay(captured.Bytes), nil
}

func replay(b []byte) io.ReadCloser {
	if len(b) == 0 {
		return http.NoBody
	}
	return io.NopCloser(bytes.NewReader(b))
}

// setRequestBody replaces the request body and makes every framing field agree with it.
func setRequestBody(r *http.Request, b []byte) {
	r.Body = replay(b)
	r.ContentLength = int64(len(b))
	r.GetBody = func() (io.ReadCloser, error) {
		return replay(b), nil
	}
	r.TransferEncoding = nil
	r.Header.Del("Transfer-Encoding")
	r.Header.Set("Content-Length", strconv.Itoa(len(b)))
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody
}
