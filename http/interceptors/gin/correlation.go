package gin

import (
	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/access-gateway/common/correlation"
	"github.com/rainbow-me/access-gateway/http/accesslog"
)

// CorrelationID returns the correlation id of the exchange handled by c, or "" when the
// access log is disabled.
func CorrelationID(c *gin.Context) string {
	if x, ok := accesslog.FromContext(c.Request.Context()); ok {
		return x.CorrelationID
	}
	return correlation.ID(c.Request.Context())
}

// errorBody renders the JSON returned on internal failures, echoing the correlation id when known.
func errorBody(c *gin.Context) gin.H {
	body := gin.H{"message": "internal server error"}
	if id := CorrelationID(c); id != "" {
		body[correlation.IDKey] = id
	}
	return body
}
