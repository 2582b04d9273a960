package proxy

import (
	"net/url"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Route forwards every request whose path is one of Prefixes, or nested under one, to Upstream.
type Route struct {
	Name        string   `mapstructure:"name"`
	Prefixes    []string `mapstructure:"prefixes"`
	Upstream    string   `mapstructure:"upstream"`
	StripPrefix bool     `mapstructure:"stripPrefix"`
}

// ErrInvalidRoute is returned, wrapped, for every route that cannot be served.
var ErrInvalidRoute = errors.New("invalid route")

// Validate checks that every route is named, has at least one prefix and an absolute upstream
// URL, and that no prefix is claimed twice.
func Validate(routes []Route) error {
	seen := map[string]string{}
	var errs []error
	for i, route := range routes {
		if strings.TrimSpace(route.Name) == "" {
			errs = append(errs, errors.Wrapf(ErrInvalidRoute, "route %d has no name", i))
			continue
		}
		if _, err := parseUpstream(route); err != nil {
			errs = append(errs, err)
		}
		if len(route.Prefixes) == 0 {
			errs = append(errs, errors.Wrapf(ErrInvalidRoute, "route %q has no prefixes", route.Name))
		}
		for _, p := range route.Prefixes {
			p = normalizePrefix(p)
			if owner, dup := seen[p]; dup {
				errs = append(errs, errors.Wrapf(ErrInvalidRoute, "prefix %q of route %q is already used by %q", p, route.Name, owner))
				continue
			}
			seen[p] = route.Name
		}
	}
	return errors.Join(errs...)
}

func parseUpstream(route Route) (*url.URL, error) {
	target, err := url.Parse(route.Upstream)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRoute, "route %q: parse upstream %q: %v", route.Name, route.Upstream, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.Wrapf(ErrInvalidRoute, "route %q: upstream %q must be an absolute URL", route.Name, route.Upstream)
	}
	return target, nil
}

type binding struct {
	prefix string
	route  Route
}

// router matches paths against route prefixes, longest prefix first.
type router struct {
	bindings []binding
}

func newRouter(routes []Route) *router {
	r := &router{}
	for _, route := range routes {
		for _, p := range route.Prefixes {
			r.bindings = append(r.bindings, binding{prefix: normalizePrefix(p), route: route})
		}
	}
	sort.SliceStable(r.bindings, func(i, j int) bool {
		return len(r.bindings[i].prefix) > len(r.bindings[j].prefix)
	})
	return r
}

func (r *router) match(path string) (binding, bool) {
	for _, b := range r.bindings {
		if hasPathPrefix(path, b.prefix) {
			return b, true
		}
	}
	return binding{}, false
}

// normalizePrefix returns a leading-slash prefix without a trailing slash.
func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if len(prefix) > 1 {
		prefix = strings.TrimRight(prefix, "/")
	}
	return prefix
}

// hasPathPrefix reports whether path equals prefix or is nested under it.
func hasPathPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func stripPathPrefix(path, prefix string) string {
	if prefix == "/" || !hasPathPrefix(path, prefix) {
		return path
	}
	stripped := strings.TrimPrefix(path, prefix)
	if stripped == "" {
		return "/"
	}
	return stripped
}
