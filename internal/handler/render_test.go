package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"gemini-chat-go/internal/model"
	"gemini-chat-go/pkg/llm"
)

func TestRenderTranscript(t *testing.T) {
	assert.Empty(t, RenderTranscript(nil))

	got := RenderTranscript([]model.Turn{
		model.UserTurn("Hi"),
		model.AssistantTurn("Hello!"),
		model.UserTurn("again"),
	})
	assert.Equal(t, []RenderedTurn{
		{Role: model.RoleUser, Label: "👤 User", Content: "Hi"},
		{Role: model.RoleAssistant, Label: "🤖 Gemini", Content: "Hello!"},
		{Role: model.RoleUser, Label: "👤 User", Content: "again"},
	}, got)
}

func TestDescribeError(t *testing.T) {
	kind, msg := DescribeError(fmt.Errorf("submit: %w", &llm.TransportError{StatusCode: 429, Body: "quota"}))
	assert.Equal(t, ErrorKindTransport, kind)
	assert.Equal(t, "An error occurred while calling the API: generateContent returned status 429: quota", msg)

	kind, msg = DescribeError(&llm.UnexpectedResponseError{Reason: "candidates is not an array"})
	assert.Equal(t, ErrorKindUnexpected, kind)
	assert.Equal(t, "An unexpected error occurred: unexpected generateContent response: candidates is not an array", msg)

	kind, _ = DescribeError(errors.New("redis down"))
	assert.Equal(t, ErrorKindUnexpected, kind)
}

func TestParseInbound(t *testing.T) {
	cases := []struct {
		in   string
		text string
		ok   bool
	}{
		{`{"type":"message","content":"Hi"}`, "Hi", true},
		{`{"type":"ping"}`, "", false},
		{`plain text`, "plain text", true},
		{`{not json`, "{not json", true},
		{``, "", true},
	}
	for _, tc := range cases {
		text, ok := parseInbound([]byte(tc.in))
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.text, text, tc.in)
	}
}
