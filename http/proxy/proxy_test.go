package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/mocktracer"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/common/test"
	gatewayhttp "github.com/rainbow-me/access-gateway/http"
)

type countingRecorder struct {
	routes []string
}

func (c *countingRecorder) UpstreamError(route string) {
	c.routes = append(c.routes, route)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		routes  []Route
		wantErr string
	}{
		{
			name:   "valid",
			routes: []Route{{Name: "auth", Prefixes: []string{"/login", "/otp"}, Upstream: "http://auth:8080"}},
		},
		{
			name:    "missing name",
			routes:  []Route{{Prefixes: []string{"/login"}, Upstream: "http://auth:8080"}},
			wantErr: "route 0 has no name",
		},
		{
			name:    "relative upstream",
			routes:  []Route{{Name: "auth", Prefixes: []string{"/login"}, Upstream: "auth:8080/x"}},
			wantErr: "must be an absolute URL",
		},
		{
			name:    "no prefixes",
			routes:  []Route{{Name: "auth", Upstream: "http://auth:8080"}},
			wantErr: "has no prefixes",
		},
		{
			name: "duplicate prefix",
			routes: []Route{
				{Name: "a", Prefixes: []string{"/login"}, Upstream: "http://a"},
				{Name: "b", Prefixes: []string{"login/"}, Upstream: "http://b"},
			},
			wantErr: `prefix "/login" of route "b" is already used by "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.routes)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
			require.True(t, errors.Is(err, ErrInvalidRoute))
		})
	}
}

func TestRouterMatchPathBoundaries(t *testing.T) {
	rt := newRouter([]Route{
		{Name: "auth", Prefixes: []string{"/login", "/otp"}},
		{Name: "reports", Prefixes: []string{"/reports", "/reports/internal"}},
	})

	tests := []struct {
		path   string
		want   string
		prefix string
	}{
		{path: "/login", want: "auth", prefix: "/login"},
		{path: "/login/step2", want: "auth", prefix: "/login"},
		{path: "/loginx"},
		{path: "/otp", want: "auth", prefix: "/otp"},
		{path: "/reports/internal/1", want: "reports", prefix: "/reports/internal"},
		{path: "/reports/1", want: "reports", prefix: "/reports"},
		{path: "/other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			b, ok := rt.match(tt.path)
			require.Equal(t, tt.want != "", ok)
			require.Equal(t, tt.want, b.route.Name)
			require.Equal(t, tt.prefix, b.prefix)
		})
	}
}

func TestStripPathPrefix(t *testing.T) {
	require.Equal(t, "/v1/x", stripPathPrefix("/api/v1/x", "/api"))
	require.Equal(t, "/", stripPathPrefix("/api", "/api"))
	require.Equal(t, "/apix", stripPathPrefix("/apix", "/api"))
	require.Equal(t, "/a", stripPathPrefix("/a", "/"))
}

func TestHandlerForwardsRequests(t *testing.T) {
	var gotPath, gotQuery, gotBody, gotCID, gotForwarded string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotBody = string(body)
		gotCID = r.Header.Get(correlation.Header)
		gotForwarded = r.Header.Get("X-Forwarded-For")
		w.Header().Set(correlation.Header, "upstream-own-id")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer upstream.Close()

	handler, err := NewHandler([]Route{
		{Name: "auth", Prefixes: []string{"/login"}, Upstream: upstream.URL},
		{Name: "api", Prefixes: []string{"/api"}, Upstream: upstream.URL + "/base", StripPrefix: true},
	}, nil, WithLogger(test.NewLogger(t)))
	require.NoError(t, err)

	t.Run("path kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login?step=1", strings.NewReader(`{"user":"a"}`))
		req.Header.Set(correlation.Header, "cid-1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		require.Equal(t, `{"ok":true}`, rr.Body.String())
		require.Equal(t, "/login", gotPath)
		require.Equal(t, "step=1", gotQuery)
		require.Equal(t, `{"user":"a"}`, gotBody)
		require.Equal(t, "cid-1", gotCID)
		require.NotEmpty(t, gotForwarded)
		require.Empty(t, rr.Header().Values(correlation.Header))
	})

	t.Run("prefix stripped onto upstream base path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		require.Equal(t, "/base/v1/users", gotPath)
	})

	t.Run("unmatched falls through", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandlerAnswersBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	rec := &countingRecorder{}
	log, logs := test.NewObservedLogger(t)
	handler, err := NewHandler([]Route{{Name: "auth", Prefixes: []string{"/login"}, Upstream: url}}, nil,
		WithLogger(log), WithErrorRecorder(rec))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Equal(t, []string{"auth"}, rec.routes)
	require.Equal(t, []string{"upstream request failed"}, test.Messages(logs))
}

func TestHandlerCustomTransport(t *testing.T) {
	var calls atomic.Int64
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return &http.Response{
			StatusCode: http.StatusAccepted,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    r,
		}, nil
	})

	handler, err := NewHandler([]Route{{Name: "auth", Prefixes: []string{"/login"}, Upstream: "http://auth.internal"}},
		nil, WithTransport(transport), WithLogger(test.NewLogger(t)))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.EqualValues(t, 1, calls.Load())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestHealthChecker(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	var healthy atomic.Bool
	healthy.Store(true)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			_, _ = io.WriteString(w, `{"status":"UP"}`)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	checker := NewHealthChecker(gatewayhttp.NewRestyWithClient(upstream.Client(), test.NewLogger(t)), upstream.URL+"/actuator/health")
	require.NoError(t, checker.Check(context.Background()))

	healthy.Store(false)
	err := checker.Check(context.Background())
	require.ErrorContains(t, err, "status 503")

	var probes int
	for _, s := range mt.FinishedSpans() {
		if s.OperationName() == "upstream.health" {
			probes++
		}
	}
	require.Equal(t, 2, probes)
}
