package gateway

import (
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/rainbow-me/access-gateway/common/correlation"
)

// CORSConfig configures cross-origin access to the proxied routes.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowedOrigins"`
	AllowedMethods   []string `mapstructure:"allowedMethods"`
	AllowedHeaders   []string `mapstructure:"allowedHeaders"`
	AllowCredentials bool     `mapstructure:"allowCredentials"`
}

func defaultCORSMethods() []string {
	return []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
		http.MethodHead,
		http.MethodPatch,
	}
}

// withCORS answers preflight requests and exposes the correlation header to browsers.
// A disabled config returns the handler unchanged.
func withCORS(cfg CORSConfig, handler http.Handler) http.Handler {
	if !cfg.Enabled {
		return handler
	}
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods()
	}
	options := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods(methods),
		handlers.AllowedHeaders(cfg.AllowedHeaders),
		handlers.ExposedHeaders([]string{correlation.Header}),
		handlers.OptionStatusCode(http.StatusNoContent),
	}
	if cfg.AllowCredentials {
		options = append(options, handlers.AllowCredentials())
	}
	return handlers.CORS(options...)(handler)
}
