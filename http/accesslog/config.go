package accesslog

import (
	"github.com/cockroachdb/errors"

	"github.com/rainbow-me/access-gateway/common/redaction"
)

// DefaultMaxBodySize bounds captured request and response bodies (1 MiB).
const DefaultMaxBodySize = 1 << 20

// Config controls what the access log captures and which values it redacts.
// It is read once at startup and must not be mutated while requests are served.
type Config struct {
	Enabled             bool     `mapstructure:"enabled"`
	LogHeaders          bool     `mapstructure:"logHeaders"`
	LogRequestBody      bool     `mapstructure:"logRequestBody"`
	LogResponseBody     bool     `mapstructure:"logResponseBody"`
	MaxBodySize         int      `mapstructure:"maxBodySize"`
	MaskedHeaders       []string `mapstructure:"maskedHeaders"`
	MaskedFields        []string `mapstructure:"maskedFields"`
	ContentTypeIncludes []string `mapstructure:"contentTypeIncludes"`
	UsernameClaimKeys   []string `mapstructure:"usernameClaimKeys"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		LogHeaders:      true,
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodySize:     DefaultMaxBodySize,
		MaskedHeaders:   []string{"authorization", "cookie", "set-cookie"},
		MaskedFields:    []string{"pass", "old_pass", "new_pass", "otp", "password", "token"},
		ContentTypeIncludes: []string{
			"application/json",
			"text/plain",
			"application/x-www-form-urlencoded",
			"multipart/form-data",
		},
		UsernameClaimKeys: []string{"username", "sub", "user_name"},
	}
}

// Validate reports settings the middleware cannot honor.
func (c Config) Validate() error {
	if c.MaxBodySize <= 0 {
		return errors.Newf("accessLog.maxBodySize must be positive, got %d", c.MaxBodySize)
	}
	return nil
}

// Rules compiles the redaction settings.
func (c Config) Rules() *redaction.Rules {
	return redaction.NewRules(c.MaskedHeaders, c.MaskedFields, c.ContentTypeIncludes)
}
