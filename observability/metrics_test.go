package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveExchange(t *testing.T) {
	m := NewMetrics()

	m.ObserveExchange(http.MethodPost, http.StatusOK, 20*time.Millisecond)
	m.ObserveExchange(http.MethodPost, http.StatusOK, 30*time.Millisecond)
	m.ObserveExchange(http.MethodGet, http.StatusBadGateway, time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(m.exchanges.WithLabelValues("POST", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.exchanges.WithLabelValues("GET", "502")))
	require.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestMetricsObserveBody(t *testing.T) {
	m := NewMetrics()

	m.ObserveBody("request", 10, false)
	m.ObserveBody("request", 1<<20, true)
	m.ObserveBody("response", 5, false)

	require.Equal(t, 1.0, testutil.ToFloat64(m.truncations.WithLabelValues("request")))
	require.Equal(t, 1, testutil.CollectAndCount(m.truncations))
	require.Equal(t, 2, testutil.CollectAndCount(m.bodyBytes))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.UpstreamError("login")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `access_gateway_upstream_errors_total{route="login"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
