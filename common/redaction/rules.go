// Package redaction masks sensitive header values and body fields before they are logged.
// Masking is best effort: bodies are matched with regular expressions rather than parsed,
// and anything that does not match is returned byte for byte.
package redaction

import (
	"net/http"
	"regexp"
	"strings"
)

// Mask replaces every redacted value.
const Mask = "****"

// Rules is the compiled, immutable form of the redaction settings. It is safe for concurrent use.
type Rules struct {
	maskedHeaders map[string]struct{}
	fields        []string
	contentTypes  []string

	jsonFields *regexp.Regexp
	formFields *regexp.Regexp
	partFields map[string]struct{}
}

// NewRules compiles the header names, body field names and loggable content types.
// Blank entries are ignored and every comparison is case-insensitive.
func NewRules(maskedHeaders, maskedFields, contentTypeIncludes []string) *Rules {
	r := &Rules{
		maskedHeaders: make(map[string]struct{}, len(maskedHeaders)),
		partFields:    make(map[string]struct{}, len(maskedFields)),
	}
	for _, h := range maskedHeaders {
		if h = strings.TrimSpace(h); h != "" {
			r.maskedHeaders[strings.ToLower(h)] = struct{}{}
		}
	}
	for _, f := range maskedFields {
		if f = strings.TrimSpace(f); f != "" {
			r.fields = append(r.fields, f)
			r.partFields[strings.ToLower(f)] = struct{}{}
		}
	}
	for _, ct := range contentTypeIncludes {
		if ct = strings.TrimSpace(ct); ct != "" {
			r.contentTypes = append(r.contentTypes, strings.ToLower(ct))
		}
	}
	if len(r.fields) > 0 {
		r.jsonFields = compileJSONFields(r.fields)
		r.formFields = compileFormFields(r.fields)
	}
	return r
}

// IsMaskedHeader reports whether values of the header are redacted.
func (r *Rules) IsMaskedHeader(name string) bool {
	_, ok := r.maskedHeaders[strings.ToLower(name)]
	return ok
}

// IsMaskedField reports whether a body field of that name is redacted.
func (r *Rules) IsMaskedField(name string) bool {
	_, ok := r.partFields[strings.ToLower(name)]
	return ok
}

// IsLoggableContentType reports whether a body with this content type may be logged.
// An empty content type is loggable; otherwise any allow list entry must appear in it.
func (r *Rules) IsLoggableContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	for _, include := range r.contentTypes {
		if strings.Contains(ct, include) {
			return true
		}
	}
	return false
}

// MaskHeaders returns a copy of h where every value of a masked header is replaced.
// The number of values per header is preserved and other headers are copied unchanged.
func (r *Rules) MaskHeaders(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for name, values := range h {
		copied := make([]string, len(values))
		if r.IsMaskedHeader(name) {
			for i := range copied {
				copied[i] = Mask
			}
		} else {
			copy(copied, values)
		}
		out[name] = copied
	}
	return out
}

// MaskBody redacts masked fields according to the body's content type.
// Unsupported content types are returned unchanged.
func (r *Rules) MaskBody(contentType string, raw []byte) []byte {
	if len(raw) == 0 || len(r.fields) == 0 {
		return raw
	}
	switch kind, params := classify(contentType); kind {
	case kindJSON:
		return r.maskJSON(raw)
	case kindForm:
		return r.maskForm(raw)
	case kindMultipart:
		return r.maskMultipart(raw, params["boundary"])
	default:
		return raw
	}
}
