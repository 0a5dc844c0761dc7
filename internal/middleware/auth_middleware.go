package middleware

import (
	"net/http"
	"strings"

	"ambassador-chat/internal/services"
	"ambassador-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(tokens *services.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := tokens.ParseUserID(extractBearer(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := services.WithUserContext(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
