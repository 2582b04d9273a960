package gin

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/access-gateway/common/env"
	"github.com/rainbow-me/access-gateway/common/logger"
)

// ErrorHandlingMiddleware logs errors attached to the gin context, tags the span with the last one
// and answers 500 unless a response was already started.
func ErrorHandlingMiddleware(c *gin.Context) {
	c.Next()
	if len(c.Errors) == 0 {
		return
	}
	err := c.Errors.Last().Err
	logger.FromContext(c.Request.Context()).Error("Error in gin http handler",
		logger.String("path", c.FullPath()),
		logger.Error(err),
	)
	if env.CurrentOrDefault(env.EnvironmentLocal).IsLocal() {
		// pretty print the error to the local console to make it human-readable in case it has a stack trace
		_, _ = fmt.Fprintf(os.Stderr, "Error in gin http handler: %+v\n", err)
	}
	tagSpanAsError(c.Request.Context(), "internal", err.Error())
	if !c.Writer.Written() {
		c.JSON(http.StatusInternalServerError, errorBody(c))
	}
}

// PanicRecoveryMiddleware recovers panics from the handlers below it, logs them and answers 500.
func PanicRecoveryMiddleware(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			// the client went away mid-copy, nothing to answer
			if r == http.ErrAbortHandler {
				panic(r)
			}
			logger.FromContext(c.Request.Context()).Error("Recovered from panic in gin http handler", logger.WithPanic(r)...)
			if env.CurrentOrDefault(env.EnvironmentLocal).IsLocal() {
				_, _ = fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
			}
			tagSpanAsError(c.Request.Context(), "panic", fmt.Sprintf("%v", r))
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(c))
		}
	}()
	c.Next()
}

func tagSpanAsError(ctx context.Context, errorType string, errorMsg string) {
	span, ok := tracer.SpanFromContext(ctx)
	if ok {
		span.SetTag(ext.Error, true)
		span.SetTag(ext.ErrorType, errorType)
		span.SetTag(ext.ErrorMsg, errorMsg)
	}
}

// TimeoutMiddleware sets a timeout on the request context
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
