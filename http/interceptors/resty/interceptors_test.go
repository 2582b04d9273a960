package resty

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/mocktracer"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/access-gateway/common/correlation"
)

func TestInjectInterceptors(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	var gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorrelation = r.Header.Get(correlation.Header)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := resty.New()
	InjectInterceptors(client)

	ctx := correlation.SetID(context.Background(), "resty-1")
	resp, err := client.R().SetContext(ctx).Get(srv.URL + "/actuator/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())

	require.Equal(t, "resty-1", gotCorrelation)

	spans := mt.FinishedSpans()
	require.Len(t, spans, 1)
	require.Equal(t, httpRequestOp, spans[0].OperationName())
	require.Equal(t, "/actuator/health", spans[0].Tag("http.path"))
}

func TestCorrelationMiddlewareWithoutID(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[correlation.Header]
	}))
	defer srv.Close()

	client := resty.New()
	InjectInterceptors(client, WithTracingEnabled(false))

	_, err := client.R().SetContext(context.Background()).Get(srv.URL)
	require.NoError(t, err)
	require.False(t, present)
}

func TestTracingFinishesSpanOnTransportError(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	client := resty.New()
	InjectInterceptors(client, WithCorrelationEnabled(false))

	for range 3 {
		_, err := client.R().SetContext(context.Background()).Get("http://127.0.0.1:1/unreachable")
		require.Error(t, err)
	}
	spans := mt.FinishedSpans()
	require.Len(t, spans, 3)
	for _, span := range spans {
		require.Equal(t, httpRequestOp, span.OperationName())
	}
	require.Empty(t, mt.OpenSpans())
}
