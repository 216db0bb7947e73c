package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gemini-chat-go/internal/service"
	"gemini-chat-go/pkg/log"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
)

// Frame types sent over the chat websocket.
const (
	FrameTranscript = "transcript"
	FramePending    = "pending"
	FrameWarning    = "warning"
	FrameError      = "error"
)

// ChatHandler serves the websocket chat. Each connection is one session.
type ChatHandler struct {
	chatService    service.ChatService
	sessionService service.SessionService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService, sessionService service.SessionService) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		sessionService: sessionService,
	}
}

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Handle upgrades the connection and runs the read loop until the client leaves.
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	sess, err := h.sessionService.Start(ctx)
	if err != nil {
		log.Error("Failed to start chat session", err)
		_ = h.send(conn, gin.H{"type": FrameError, "kind": ErrorKindUnexpected, "message": "An unexpected error occurred: " + err.Error()})
		return
	}
	sess.Attach()
	defer func() {
		// The request context is gone once the client disconnects.
		if err := h.sessionService.End(context.Background(), sess.ID); err != nil {
			log.Warnf("Failed to end session %s: %v", sess.ID, err)
		}
	}()

	log.Infof("WebSocket connection established, session: %s", sess.ID)
	if err := h.sendTranscript(ctx, conn, sess); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("Failed to read from WebSocket: %v", err)
			}
			break
		}

		text, ok := parseInbound(message)
		if !ok {
			log.Debugf("Ignoring non-message frame on session %s", sess.ID)
			continue
		}
		if strings.TrimSpace(text) == "" {
			if err := h.send(conn, gin.H{"type": FrameWarning, "message": EmptyMessageWarning}); err != nil {
				break
			}
			continue
		}

		if err := h.send(conn, gin.H{"type": FramePending}); err != nil {
			break
		}
		if err := h.submit(ctx, conn, sess, text); err != nil {
			log.Warnf("Failed to write to WebSocket: %v", err)
			break
		}
	}
	log.Infof("WebSocket connection closed, session: %s", sess.ID)
}

// submit runs one turn and writes the resulting frames. Only write failures are returned.
func (h *ChatHandler) submit(ctx context.Context, conn *websocket.Conn, sess *service.Session, text string) error {
	res, err := h.chatService.Submit(ctx, sess, text)
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return h.send(conn, gin.H{"type": FrameWarning, "message": EmptyMessageWarning})
	case err != nil:
		kind, msg := DescribeError(err)
		if werr := h.sendTranscript(ctx, conn, sess); werr != nil {
			return werr
		}
		return h.send(conn, gin.H{"type": FrameError, "kind": kind, "message": msg})
	}
	return h.send(conn, gin.H{
		"type":     FrameTranscript,
		"turns":    RenderTranscript(res.Turns),
		"fallback": res.Fallback,
	})
}

func (h *ChatHandler) sendTranscript(ctx context.Context, conn *websocket.Conn, sess *service.Session) error {
	turns, err := sess.Store.All(ctx)
	if err != nil {
		log.Errorf("Failed to load history of session %s: %v", sess.ID, err)
		return h.send(conn, gin.H{"type": FrameError, "kind": ErrorKindUnexpected, "message": "An unexpected error occurred: " + err.Error()})
	}
	return h.send(conn, gin.H{
		"type":     FrameTranscript,
		"turns":    RenderTranscript(turns),
		"fallback": false,
	})
}

func (h *ChatHandler) send(conn *websocket.Conn, frame gin.H) error {
	frame["timestamp"] = time.Now().UnixMilli()
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// parseInbound accepts {"type":"message","content":...} or a raw text frame.
func parseInbound(message []byte) (string, bool) {
	if len(message) > 0 && message[0] == '{' {
		var frame inboundFrame
		if err := json.Unmarshal(message, &frame); err == nil {
			if frame.Type != "message" {
				return "", false
			}
			return frame.Content, true
		}
	}
	return string(message), true
}
