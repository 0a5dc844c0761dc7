package handler

import (
	"net/http"

	"ambassador-chat/internal/presence"
	"ambassador-chat/internal/proxy"
	"ambassador-chat/internal/services"
	"ambassador-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PresenceHandler exposes the typing heartbeat over REST for clients
// that are not holding a socket open.
type PresenceHandler struct {
	coord  *presence.Coordinator
	access *proxy.AccessControl
}

func NewPresenceHandler(coord *presence.Coordinator, access *proxy.AccessControl) *PresenceHandler {
	return &PresenceHandler{coord: coord, access: access}
}

func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	var req httpdto.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid room id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.access.CanViewRoom(c.Request.Context(), userID, roomID); err != nil {
		respondError(c, err)
		return
	}

	h.coord.Heartbeat(c.Request.Context(), roomID, userID, req.Typing)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"accepted": true}))
}
