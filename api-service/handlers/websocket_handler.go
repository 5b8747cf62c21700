package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/services"
)

type WebSocketHandler struct {
	events *services.EventService
}

func NewWebSocketHandler(events *services.EventService) *WebSocketHandler {
	return &WebSocketHandler{events: events}
}

// GET /api/ws
// @Summary Task event stream
// @Description Upgrade to a WebSocket carrying live task events for the caller's organization. Pass the access token via the token query parameter.
// @Tags events
// @Security BearerAuth
// @Param token query string false "Access token (alternative to Authorization header)"
// @Success 101 {string} string "Switching protocols"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /ws [get]
func (h *WebSocketHandler) Connect(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	if err := h.events.HandleConnection(c.Writer, c.Request, principal); err != nil {
		log.Printf("❌ WebSocket upgrade failed for user %s: %v", principal.ID, err)
	}
}
