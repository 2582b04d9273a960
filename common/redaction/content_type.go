package redaction

import (
	"mime"
	"strings"
)

type bodyKind int

const (
	kindOther bodyKind = iota
	kindJSON
	kindForm
	kindMultipart
)

func classify(contentType string) (bodyKind, map[string]string) {
	if strings.TrimSpace(contentType) == "" {
		return kindOther, nil
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// fall back to the bare type so a malformed parameter does not disable masking
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
		params = nil
	}

	switch {
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return kindJSON, params
	case mediaType == "application/x-www-form-urlencoded":
		return kindForm, params
	case mediaType == "multipart/form-data":
		return kindMultipart, params
	default:
		return kindOther, params
	}
}
