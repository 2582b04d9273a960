package http

import (
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/rainbow-me/access-gateway/common/logger"
	interceptors "github.com/rainbow-me/access-gateway/http/interceptors/resty"
)

// NewRestyWithClient returns a resty client that propagates traces and correlation ids and logs through log.
func NewRestyWithClient(client *http.Client, log *logger.Logger, opt ...interceptors.InterceptorOpt) *resty.Client {
	restyClient := resty.NewWithClient(client)
	interceptors.InjectInterceptors(restyClient, opt...)

	if log != nil {
		restyClient.SetLogger((*logger.Adapter)(log))
	}
	return restyClient
}
