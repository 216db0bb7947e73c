// Package handler contains the HTTP and websocket front-ends of the chat.
package handler

import (
	"errors"

	"gemini-chat-go/internal/model"
	"gemini-chat-go/pkg/llm"
)

const (
	UserLabel      = "👤 User"
	AssistantLabel = "🤖 Gemini"
)

// RenderedTurn is a turn as shown to the user.
type RenderedTurn struct {
	Role    model.Role `json:"role"`
	Label   string     `json:"label"`
	Content string     `json:"content"`
}

// RenderTranscript converts the history into display rows, oldest first.
// Every surface re-renders from the full history after each state change.
func RenderTranscript(turns []model.Turn) []RenderedTurn {
	rendered := make([]RenderedTurn, 0, len(turns))
	for _, t := range turns {
		label := AssistantLabel
		if t.Role == model.RoleUser {
			label = UserLabel
		}
		rendered = append(rendered, RenderedTurn{Role: t.Role, Label: label, Content: t.Content})
	}
	return rendered
}

// Error kinds reported to clients.
const (
	ErrorKindTransport  = "transport"
	ErrorKindUnexpected = "unexpected"
)

// DescribeError maps a submit failure to the kind and message shown to the user.
func DescribeError(err error) (kind, message string) {
	var te *llm.TransportError
	if errors.As(err, &te) {
		return ErrorKindTransport, "An error occurred while calling the API: " + te.Error()
	}
	return ErrorKindUnexpected, "An unexpected error occurred: " + err.Error()
}

// EmptyMessageWarning is shown when the user submits blank input.
const EmptyMessageWarning = "Please enter a message!"
