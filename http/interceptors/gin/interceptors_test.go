package gin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/mocktracer"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rainbow-me/access-gateway/common/logger"
	"github.com/rainbow-me/access-gateway/common/test"
	"github.com/rainbow-me/access-gateway/http/accesslog"
)

func newEngine(t *testing.T, opts ...InterceptorOpt) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, logs := test.NewObservedLogger(t)

	engine := gin.New()
	opts = append([]InterceptorOpt{WithAccessLog(accesslog.DefaultConfig(), accesslog.WithLogger(log))}, opts...)
	engine.Use(DefaultInterceptors(opts...)...)

	engine.POST("/otp", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": "issued", "correlation": CorrelationID(c)})
	})
	engine.GET("/avatar", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", []byte("\x89PNGsecret-binary"))
	})
	engine.DELETE("/session", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	engine.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})
	engine.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("upstream unavailable"))
	})
	return engine, logs
}

func accessLines(logs *observer.ObservedLogs) *observer.ObservedLogs {
	return logs.Filter(func(e observer.LoggedEntry) bool {
		return e.LoggerName == logger.AccessLoggerName
	})
}

func TestAccessLogThroughGin(t *testing.T) {
	engine, logs := newEngine(t, WithTracingEnabled(false))

	req := httptest.NewRequest(http.MethodPost, "/otp", strings.NewReader(`{"otp":"123456"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", "gin-1")
	req.Header.Set("X-User", "alice")
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "gin-1", rr.Header().Get("X-Correlation-Id"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "issued", resp["token"])
	require.Equal(t, "gin-1", resp["correlation"])

	access := accessLines(logs).All()
	require.Len(t, access, 3)
	require.Equal(t, `[gin-1][user=alice] -> BODY: {"otp":"****"}`, access[1].Message)
	require.True(t, strings.HasPrefix(access[2].Message, "[gin-1][user=alice] <- 200 "))
	require.True(t, strings.HasSuffix(access[2].Message, `BODY: {"correlation":"gin-1","token":"****"}`), access[2].Message)
}

func TestAccessLogHonoursRenderedContentType(t *testing.T) {
	engine, logs := newEngine(t, WithTracingEnabled(false))

	tests := []struct {
		name       string
		method     string
		path       string
		wantCode   int
		wantStatus string
	}{
		{name: "binary body is not logged", method: http.MethodGet, path: "/avatar", wantCode: http.StatusOK, wantStatus: " <- 200 "},
		{name: "bodyless status", method: http.MethodDelete, path: "/session", wantCode: http.StatusNoContent, wantStatus: " <- 204 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.TakeAll()
			rr := httptest.NewRecorder()
			engine.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.wantCode, rr.Code)

			access := accessLines(logs).All()
			require.Len(t, access, 2)
			require.Contains(t, access[1].Message, tt.wantStatus)
			require.NotContains(t, access[1].Message, "BODY:")
		})
	}

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/avatar", nil))
	require.Equal(t, "\x89PNGsecret-binary", rr.Body.String())
	require.Equal(t, "image/png", rr.Header().Get("Content-Type"))
}

func TestPanicIsLoggedWithStatus(t *testing.T) {
	engine, logs := newEngine(t, WithTracingEnabled(false))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Correlation-Id", "p-1")
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"message":"internal server error","correlation_id":"p-1"}`, rr.Body.String())
	require.Equal(t, 1, logs.FilterMessage("Recovered from panic in gin http handler").Len())

	access := accessLines(logs).All()
	require.Len(t, access, 2)
	require.Contains(t, access[1].Message, " <- 500 ")
}

func TestErrorHandling(t *testing.T) {
	engine, logs := newEngine(t, WithTracingEnabled(false))

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/fail", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, 1, logs.FilterMessage("Error in gin http handler").Len())
}

func TestAccessLogDisabled(t *testing.T) {
	cfg := accesslog.DefaultConfig()
	cfg.Enabled = false
	engine, logs := newEngine(t, WithTracingEnabled(false), WithAccessLog(cfg))

	req := httptest.NewRequest(http.MethodPost, "/otp", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("X-Correlation-Id"))
	require.Zero(t, accessLines(logs).Len())
}

func TestTracingMiddleware(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	engine, _ := newEngine(t)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := mt.FinishedSpans()
	require.Len(t, spans, 1)
	require.Equal(t, httpHandlerOp, spans[0].OperationName())
	require.Equal(t, "/boom", spans[0].Tag(ext.HTTPRoute))
	require.Equal(t, "panic", spans[0].Tag(ext.ErrorType))
}
