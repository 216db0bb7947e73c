package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gemini-chat-go/internal/service"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	sessionService service.SessionService
	model          string
}

func NewHealthHandler(sessionService service.SessionService, model string) *HealthHandler {
	return &HealthHandler{sessionService: sessionService, model: model}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"status":         "ok",
			"model":          h.model,
			"activeSessions": h.sessionService.Active(),
		},
	})
}
