package handler

import (
	"errors"
	"net/http"

	"ambassador-chat/internal/transport/httpdto"
	chaterrors "ambassador-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError translates service errors into a stable HTTP surface.
// Unknown errors are masked as 500 so internals never leak to clients.
// The error is also attached to the context for the logging middleware.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, chaterrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, chaterrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, chaterrors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
	case errors.Is(err, chaterrors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, chaterrors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "CONFLICT"))
	case errors.Is(err, chaterrors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
	case errors.Is(err, chaterrors.ErrDependency):
		c.JSON(http.StatusBadGateway, httpdto.NewErrorResponse("dependency failure", "DEPENDENCY_FAILED"))
	case errors.Is(err, chaterrors.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("service unavailable", "UNAVAILABLE"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
