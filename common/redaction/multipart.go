package redaction

import (
	"bytes"
	"regexp"
	"strings"
)

var dispositionName = regexp.MustCompile(`(?i)(?:^|;)\s*name\s*=\s*(?:"([^"]*)"|([^;\s]+))`)

// maskMultipart splits the body on the boundary delimiter and replaces the content of
// every part whose form field name is masked. Headers, separators, the preamble and the
// closing delimiter are kept as they are. Without a boundary the body is returned unchanged.
func (r *Rules) maskMultipart(raw []byte, boundary string) []byte {
	if boundary == "" {
		return raw
	}
	delimiter := []byte("--" + boundary)
	parts := splitDelimited(raw, delimiter)
	if len(parts) < 2 {
		return raw
	}

	changed := false
	// parts[0] is the preamble
	for i := 1; i < len(parts); i++ {
		if masked, ok := r.maskPart(parts[i]); ok {
			parts[i] = masked
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return bytes.Join(parts, delimiter)
}

// splitDelimited splits raw on delimiter occurrences that start a line. Joining the result
// with delimiter yields raw again.
func splitDelimited(raw, delimiter []byte) [][]byte {
	var parts [][]byte
	start, from := 0, 0
	for {
		i := bytes.Index(raw[from:], delimiter)
		if i < 0 {
			break
		}
		i += from
		if i == 0 || raw[i-1] == '\n' {
			parts = append(parts, raw[start:i])
			start = i + len(delimiter)
			from = start
			continue
		}
		from = i + 1
	}
	return append(parts, raw[start:])
}

func (r *Rules) maskPart(part []byte) ([]byte, bool) {
	// closing delimiter "--" followed by the epilogue
	if bytes.HasPrefix(part, []byte("--")) {
		return nil, false
	}
	headerEnd, sep := headerSeparator(part)
	if headerEnd < 0 {
		return nil, false
	}
	name, ok := partName(part[:headerEnd])
	if !ok || !r.IsMaskedField(name) {
		return nil, false
	}

	content := part[headerEnd+len(sep):]
	trailer := ""
	switch {
	case bytes.HasSuffix(content, []byte("\r\n")):
		trailer = "\r\n"
	case bytes.HasSuffix(content, []byte("\n")):
		trailer = "\n"
	}

	out := make([]byte, 0, headerEnd+len(sep)+len(Mask)+len(trailer))
	out = append(out, part[:headerEnd]...)
	out = append(out, sep...)
	out = append(out, Mask...)
	out = append(out, trailer...)
	return out, true
}

// headerSeparator finds the blank line ending the part headers.
func headerSeparator(part []byte) (int, string) {
	crlf := bytes.Index(part, []byte("\r\n\r\n"))
	lf := bytes.Index(part, []byte("\n\n"))
	switch {
	case crlf < 0 && lf < 0:
		return -1, ""
	case lf < 0 || (crlf >= 0 && crlf < lf):
		return crlf, "\r\n\r\n"
	default:
		return lf, "\n\n"
	}
}

func partName(header []byte) (string, bool) {
	for _, line := range strings.Split(string(header), "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "content-disposition") {
			continue
		}
		m := dispositionName.FindStringSubmatch(value)
		if m == nil {
			return "", false
		}
		if m[1] != "" {
			return m[1], true
		}
		return m[2], m[2] != ""
	}
	return "", false
}
