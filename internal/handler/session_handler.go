package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemini-chat-go/internal/service"
	"gemini-chat-go/pkg/llm"
	"gemini-chat-go/pkg/log"
)

// SessionContextKey is where SessionMiddleware stores the resolved *service.Session.
const SessionContextKey = "session"

// SessionHandler exposes sessions over REST.
type SessionHandler struct {
	chatService    service.ChatService
	sessionService service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(chatService service.ChatService, sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{
		chatService:    chatService,
		sessionService: sessionService,
	}
}

// SubmitRequest is the body of POST /sessions/current/messages.
type SubmitRequest struct {
	Message string `json:"message"`
}

// Create starts a session and returns its token.
func (h *SessionHandler) Create(c *gin.Context) {
	sess, err := h.sessionService.Start(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to start session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "Failed to start session", "data": nil})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "success",
		"data": gin.H{
			"sessionId": sess.ID,
			"token":     sess.Token,
			"expiresAt": sess.ExpiresAt,
		},
	})
}

// Turns returns the rendered transcript of the current session.
func (h *SessionHandler) Turns(c *gin.Context) {
	sess := c.MustGet(SessionContextKey).(*service.Session)

	turns, err := sess.Store.All(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to load history of session %s: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "Failed to retrieve conversation history", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"turns": RenderTranscript(turns)},
	})
}

// Submit sends one message in the current session.
func (h *SessionHandler) Submit(c *gin.Context) {
	sess := c.MustGet(SessionContextKey).(*service.Session)

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid request body", "data": nil})
		return
	}

	res, err := h.chatService.Submit(c.Request.Context(), sess, req.Message)
	if err != nil {
		status := submitErrorStatus(err)
		if errors.Is(err, service.ErrEmptyMessage) {
			c.JSON(status, gin.H{"code": status, "message": EmptyMessageWarning, "data": nil})
			return
		}
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(status, gin.H{"code": status, "message": "Session has ended", "data": nil})
			return
		}
		kind, msg := DescribeError(err)
		c.JSON(status, gin.H{"code": status, "message": msg, "data": gin.H{"kind": kind}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"reply":    res.Reply,
			"fallback": res.Fallback,
			"turns":    RenderTranscript(res.Turns),
		},
	})
}

// End discards the current session and its history.
func (h *SessionHandler) End(c *gin.Context) {
	sess := c.MustGet(SessionContextKey).(*service.Session)

	if err := h.sessionService.End(c.Request.Context(), sess.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "Failed to end session", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}

func submitErrorStatus(err error) int {
	var te *llm.TransportError
	var ue *llm.UnexpectedResponseError
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.As(err, &te), errors.As(err, &ue):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
