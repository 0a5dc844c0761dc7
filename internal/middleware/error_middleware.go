package middleware

import (
	"net/http"

	"ambassador-chat/internal/transport/httpdto"
	"ambassador-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler logs any errors attached to the context. Handlers render
// their own error envelope; this only writes one when a handler attached
// an error and bailed without responding.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s %s: %s", c.Request.Method, c.Request.URL.Path, err.Error())
		}
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
		}
	}
}
