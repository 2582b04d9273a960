package proxy

import (
	"context"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"github.com/rainbow-me/access-gateway/observability"
)

// HealthChecker probes an upstream health endpoint.
type HealthChecker struct {
	client *resty.Client
	url    string
}

// NewHealthChecker probes url with client. The client should come from http.NewRestyWithClient
// so probes carry trace and correlation headers.
func NewHealthChecker(client *resty.Client, url string) *HealthChecker {
	return &HealthChecker{client: client, url: url}
}

// URL is the probed endpoint.
func (h *HealthChecker) URL() string { return h.url }

// Check returns nil when the upstream answers with a 2xx status.
func (h *HealthChecker) Check(ctx context.Context) (err error) {
	span, ctx := observability.StartSpan(ctx, "upstream.health")
	defer func() { span.Finish(tracer.WithError(err)) }()

	resp, err := h.client.R().SetContext(ctx).Get(h.url)
	if err != nil {
		return errors.Wrapf(err, "probe %s", h.url)
	}
	if !resp.IsSuccess() {
		return errors.Newf("probe %s: status %d", h.url, resp.StatusCode())
	}
	return nil
}
