package redaction

import (
	"regexp"
	"strings"
)

// compileJSONFields matches "field": "string value" pairs for any of the fields.
// Escaped quotes inside the value are consumed so the match ends at the real closing quote.
func compileJSONFields(fields []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)"(` + alternation(fields) + `)"\s*:\s*"(?:[^"\\]|\\.)*"`)
}

func (r *Rules) maskJSON(raw []byte) []byte {
	return r.jsonFields.ReplaceAll(raw, []byte(`"${1}":"`+Mask+`"`))
}

func alternation(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(quoted, "|")
}
