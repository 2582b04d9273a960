// Package gateway holds the configuration of the access gateway binary.
package gateway

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rainbow-me/access-gateway/common/config"
	"github.com/rainbow-me/access-gateway/common/logger"
	"github.com/rainbow-me/access-gateway/http/accesslog"
	"github.com/rainbow-me/access-gateway/http/proxy"
)

const DefaultServiceName = "access-gateway"

type HTTPConfig struct {
	Address        string        `mapstructure:"address"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	// TrustForwardedHeaders rewrites the caller address and scheme from X-Forwarded-* headers.
	TrustForwardedHeaders bool       `mapstructure:"trustForwardedHeaders"`
	CORS                  CORSConfig `mapstructure:"cors"`
}

type GRPCConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Address        string        `mapstructure:"address"`
	Reflection     bool          `mapstructure:"reflection"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	// PrunedFields are protobuf field paths removed from logged messages.
	PrunedFields []string `mapstructure:"prunedFields"`
}

type ObservabilityConfig struct {
	TracingEnabled bool   `mapstructure:"tracingEnabled"`
	AgentAddr      string `mapstructure:"agentAddr"`
	MetricsPath    string `mapstructure:"metricsPath"`
}

type UpstreamHealthConfig struct {
	// URL is probed by the health endpoint; empty disables the probe.
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the full gateway configuration, read from cmd/config/<ENVIRONMENT>.yaml.
type Config struct {
	ServiceName     string               `mapstructure:"serviceName"`
	HTTP            HTTPConfig           `mapstructure:"http"`
	GRPC            GRPCConfig           `mapstructure:"grpc"`
	AccessLog       accesslog.Config     `mapstructure:"accessLog"`
	Routes          []proxy.Route        `mapstructure:"routes"`
	UpstreamHealth  UpstreamHealthConfig `mapstructure:"upstreamHealth"`
	Observability   ObservabilityConfig  `mapstructure:"observability"`
	ShutdownTimeout time.Duration        `mapstructure:"shutdownTimeout"`
}

// Defaults returns a default for every scalar and list key so each can be set from the
// environment alone. Routes have no default.
func Defaults() map[string]any {
	al := accesslog.DefaultConfig()
	return map[string]any{
		"serviceName": DefaultServiceName,

		"http.address":               ":8080",
		"http.readTimeout":           "30s",
		"http.writeTimeout":          "60s",
		"http.requestTimeout":        "30s",
		"http.trustForwardedHeaders": false,
		"http.cors.enabled":          false,
		"http.cors.allowedOrigins":   []string{"*"},
		"http.cors.allowedMethods":   defaultCORSMethods(),
		"http.cors.allowedHeaders":   []string{"Accept", "Authorization", "Content-Type", "X-Correlation-Id"},
		"http.cors.allowCredentials": false,

		"grpc.enabled":        false,
		"grpc.address":        ":9090",
		"grpc.reflection":     false,
		"grpc.requestTimeout": "30s",
		"grpc.prunedFields":   []string{},

		"accessLog.enabled":             al.Enabled,
		"accessLog.logHeaders":          al.LogHeaders,
		"accessLog.logRequestBody":      al.LogRequestBody,
		"accessLog.logResponseBody":     al.LogResponseBody,
		"accessLog.maxBodySize":         al.MaxBodySize,
		"accessLog.maskedHeaders":       al.MaskedHeaders,
		"accessLog.maskedFields":        al.MaskedFields,
		"accessLog.contentTypeIncludes": al.ContentTypeIncludes,
		"accessLog.usernameClaimKeys":   al.UsernameClaimKeys,

		"upstreamHealth.url":     "",
		"upstreamHealth.timeout": "2s",

		"observability.tracingEnabled": true,
		"observability.agentAddr":      "",
		"observability.metricsPath":    "/metrics",

		"shutdownTimeout": "30s",
	}
}

// Load reads and validates the configuration of the current environment.
func Load(log *logger.Logger, opts ...config.ReadConfigOption) (Config, error) {
	var cfg Config
	opts = append([]config.ReadConfigOption{config.WithDefaults(Defaults())}, opts...)
	if err := config.LoadConfig(&cfg, log, opts...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid gateway configuration")
	}
	return cfg, nil
}

// Validate reports every setting the gateway cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Address) == "" {
		errs = append(errs, errors.New("http.address is required"))
	}
	if c.GRPC.Enabled && strings.TrimSpace(c.GRPC.Address) == "" {
		errs = append(errs, errors.New("grpc.address is required when grpc is enabled"))
	}
	if len(c.Routes) == 0 {
		errs = append(errs, errors.New("at least one route is required"))
	}
	if !strings.HasPrefix(c.Observability.MetricsPath, "/") {
		errs = append(errs, errors.Newf("observability.metricsPath %q must start with /", c.Observability.MetricsPath))
	}
	errs = append(errs, c.AccessLog.Validate(), proxy.Validate(c.Routes))
	return errors.Join(errs...)
}
