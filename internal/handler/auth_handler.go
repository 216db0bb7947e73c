package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gemini-chat-go/internal/service"
	"gemini-chat-go/pkg/log"
)

// AuthHandler renews session tokens.
type AuthHandler struct {
	sessionService service.SessionService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessionService service.SessionService) *AuthHandler {
	return &AuthHandler{sessionService: sessionService}
}

// RefreshToken issues a fresh token for the current session. The old token stays valid until it expires.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	sess := c.MustGet(SessionContextKey).(*service.Session)

	tok, expiresAt, err := h.sessionService.Refresh(c.Request.Context(), sess)
	if err != nil {
		log.Warnf("RefreshToken: failed to refresh token of session %s: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "Failed to refresh token", "data": nil})
		return
	}

	log.Info("Token refreshed successfully")
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Token refreshed successfully",
		"data": gin.H{
			"sessionId": sess.ID,
			"token":     tok,
			"expiresAt": expiresAt,
		},
	})
}
