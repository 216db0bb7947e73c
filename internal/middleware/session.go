package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gemini-chat-go/internal/handler"
	"gemini-chat-go/internal/service"
	"gemini-chat-go/pkg/log"
)

// SessionMiddleware resolves the bearer session token and stores the live
// session in the context under handler.SessionContextKey.
func SessionMiddleware(sessionService service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Missing Authorization header", "data": nil})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Invalid Authorization header format", "data": nil})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		sess, err := sessionService.Resume(c.Request.Context(), tokenString)
		if err != nil {
			msg := "Invalid or expired session token"
			if errors.Is(err, service.ErrSessionNotFound) {
				msg = "Session has ended"
			}
			log.Debugf("Rejected session token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": msg, "data": nil})
			return
		}

		c.Set(handler.SessionContextKey, sess)
		c.Next()
	}
}
