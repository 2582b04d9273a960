// Package identity resolves a best-effort caller username for audit logging.
// Nothing here authenticates the caller: tokens are decoded without verifying signatures.
package identity

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rainbow-me/access-gateway/common/headers"
)

const loginPathMarker = "/login"

// DefaultClaimKeys are consulted when no claim keys are configured.
var DefaultClaimKeys = []string{"username", "sub", "user_name"}

// fallbackClaimKeys are always tried after the configured keys.
var fallbackClaimKeys = []string{"preferred_username", "name"}

// Resolver picks the username from, in order: Basic credentials on login paths,
// identity headers, then unverified bearer token claims.
type Resolver struct {
	claimKeys []string
	parser    *jwt.Parser
}

// NewResolver returns a Resolver that reads the given claim keys from bearer tokens.
func NewResolver(claimKeys []string) *Resolver {
	keys := make([]string, 0, len(claimKeys)+len(fallbackClaimKeys))
	for _, k := range claimKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		keys = append(keys, DefaultClaimKeys...)
	}
	keys = append(keys, fallbackClaimKeys...)

	return &Resolver{
		claimKeys: keys,
		parser:    jwt.NewParser(jwt.WithPaddingAllowed()),
	}
}

// ResolveUsername returns the caller's username or "" when none can be determined.
func (r *Resolver) ResolveUsername(req *http.Request) string {
	if req == nil {
		return ""
	}
	path := ""
	if req.URL != nil {
		path = req.URL.Path
	}
	if user, ok := FromLoginBasicAuth(path, req.Header); ok {
		return user
	}
	if user, ok := FromHeaders(req.Header); ok {
		return user
	}
	if user, ok := r.FromBearer(req.Header.Get(headers.HeaderAuthorization)); ok {
		return user
	}
	return ""
}

// FromLoginBasicAuth returns the Basic auth username when the path is a login path.
func FromLoginBasicAuth(path string, h http.Header) (string, bool) {
	if !strings.Contains(strings.ToLower(path), loginPathMarker) {
		return "", false
	}
	scheme, encoded, found := strings.Cut(strings.TrimSpace(h.Get(headers.HeaderAuthorization)), " ")
	if !found || !strings.EqualFold(scheme, headers.SchemeBasic) {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", false
	}
	user, _, _ := strings.Cut(string(decoded), ":")
	if strings.TrimSpace(user) == "" {
		return "", false
	}
	return user, true
}

// FromHeaders returns the first non-blank identity header value.
func FromHeaders(h http.Header) (string, bool) {
	for _, name := range headers.UsernameHeaders() {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

// FromBearer decodes the claims of a bearer token without verifying it and returns the
// first non-blank configured claim.
func (r *Resolver) FromBearer(authorization string) (string, bool) {
	token, ok := bearerToken(authorization)
	if !ok {
		return "", false
	}
	claims, err := r.unverifiedClaims(token)
	if err != nil {
		return "", false
	}
	for _, key := range r.claimKeys {
		if v, ok := claimString(claims[key]); ok {
			return v, true
		}
	}
	return "", false
}

// unverifiedClaims decodes the claims segment only. The header and signature segments are
// never looked at.
func (r *Resolver) unverifiedClaims(token string) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("token is not a three segment jwt")
	}
	payload, err := r.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, errors.Wrap(err, "decode bearer claims segment")
	}
	claims := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return nil, errors.Wrap(err, "decode bearer claims")
	}
	return claims, nil
}

func bearerToken(authorization string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authorization), " ")
	if !found || !strings.EqualFold(scheme, headers.SchemeBearer) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func claimString(v any) (string, bool) {
	var s string
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		s = val
	case fmt.Stringer:
		s = val.String()
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
