package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware recovers from handler panics. JSON API routes answer with a
// structured internal error; page routes answer with a short Arabic error page.
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			stackTrace := string(debug.Stack())

			var panicErr error
			if e, ok := recovered.(error); ok {
				panicErr = e
			} else {
				panicErr = fmt.Errorf("panic: %v", recovered)
			}

			appErr := contextutils.NewAppErrorWithCause(
				contextutils.ErrorCodeInternalError,
				contextutils.SeverityFatal,
				"Internal server error",
				"A panic occurred while processing the request",
				panicErr,
			)
			if gin.Mode() == gin.DebugMode {
				appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
			}

			logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
				"http.method": c.Request.Method,
				"http.path":   c.Request.URL.Path,
				"stack":       stackTrace,
			})
			_ = c.Error(appErr)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			if strings.HasPrefix(c.Request.URL.Path, "/v1/") {
				c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.ToJSON())
				return
			}
			msg := contextutils.GetLocalizedMessage(contextutils.ErrorCodeInternalError, contextutils.LocaleArabic)
			c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte(
				`<!DOCTYPE html><html lang="ar" dir="rtl"><body><p data-code="`+
					string(contextutils.ErrorCodeInternalError)+`">`+msg+`</p><a href="/">&#8617;</a></body></html>`))
			c.Abort()
		}()

		c.Next()
	}
}
