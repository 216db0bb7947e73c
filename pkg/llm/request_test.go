package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-chat-go/internal/model"
)

func TestBuildRequest_IsDeterministic(t *testing.T) {
	history := []model.Turn{
		model.UserTurn("Hi"),
		model.AssistantTurn("Hello!"),
		model.UserTurn("What's \"quoted\" <html> & unicode ✓?"),
	}

	first, err := json.Marshal(BuildRequest(history, DefaultGenerationConfig(), DefaultSafetySettings()))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(BuildRequest(history, DefaultGenerationConfig(), DefaultSafetySettings()))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildRequest_WireShape(t *testing.T) {
	got, err := json.Marshal(BuildRequest(
		[]model.Turn{model.UserTurn("Hi"), model.AssistantTurn("Yo")},
		DefaultGenerationConfig(),
		DefaultSafetySettings()[:1],
	))
	require.NoError(t, err)

	want := `{"contents":[{"role":"user","parts":[{"text":"Hi"}]},{"role":"model","parts":[{"text":"Yo"}]}],` +
		`"generationConfig":{"temperature":0.7,"topK":40,"topP":0.95,"maxOutputTokens":1024},` +
		`"safetySettings":[{"category":"HARM_CATEGORY_HARASSMENT","threshold":"BLOCK_MEDIUM_AND_ABOVE"}]}`
	assert.JSONEq(t, want, string(got))
}

func TestBuildRequest_EmptyHistoryMarshalsEmptyArrays(t *testing.T) {
	got, err := json.Marshal(BuildRequest(nil, DefaultGenerationConfig(), nil))
	require.NoError(t, err)
	assert.Contains(t, string(got), `"contents":[]`)
	assert.Contains(t, string(got), `"safetySettings":[]`)
}

func TestBuildRequest_DoesNotAliasHistory(t *testing.T) {
	history := []model.Turn{model.UserTurn("Hi")}
	req := BuildRequest(history, DefaultGenerationConfig(), DefaultSafetySettings())
	req.Contents[0].Parts[0].Text = "changed"
	assert.Equal(t, "Hi", history[0].Content)
}

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		want       string
		genuine    bool
		unexpected bool
	}{
		{name: "text", body: `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`, want: "hello"},
		{name: "first candidate and part win", body: `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}},{"content":{"parts":[{"text":"c"}]}}]}`, want: "a"},
		{name: "extra fields ignored", body: `{"candidates":[{"content":{"role":"model","parts":[{"text":"hi"}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":3}}`, want: "hi"},
		{name: "empty candidates", body: `{"candidates": []}`, want: FallbackReply},
		{name: "no candidates key", body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, want: FallbackReply},
		{name: "null candidates", body: `{"candidates": null}`, want: FallbackReply},
		{name: "blocked candidate", body: `{"candidates":[{"finishReason":"SAFETY"}]}`, want: FallbackReply},
		{name: "empty parts", body: `{"candidates":[{"content":{"parts":[]}}]}`, want: FallbackReply},
		{name: "empty text", body: `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`, want: FallbackReply},
		{name: "model text equal to fallback text", body: `{"candidates":[{"content":{"parts":[{"text":"Sorry, a response could not be generated."}]}}]}`, want: FallbackReply, genuine: true},
		{name: "not json", body: `not json`, unexpected: true},
		{name: "json array", body: `[]`, unexpected: true},
		{name: "json null", body: `null`, unexpected: true},
		{name: "candidates not array", body: `{"candidates":"x"}`, unexpected: true},
		{name: "candidate not object", body: `{"candidates":[1]}`, unexpected: true},
		{name: "content not object", body: `{"candidates":[{"content":"x"}]}`, unexpected: true},
		{name: "parts missing", body: `{"candidates":[{"content":{"role":"model"}}]}`, unexpected: true},
		{name: "parts not array", body: `{"candidates":[{"content":{"parts":{}}}]}`, unexpected: true},
		{name: "part not object", body: `{"candidates":[{"content":{"parts":["x"]}}]}`, unexpected: true},
		{name: "text missing", body: `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`, unexpected: true},
		{name: "text not string", body: `{"candidates":[{"content":{"parts":[{"text":42}]}}]}`, unexpected: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractReply([]byte(tc.body))
			if tc.unexpected {
				var ue *UnexpectedResponseError
				require.True(t, errors.As(err, &ue), "got err %v", err)
				assert.Empty(t, got.Text)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Text)
			assert.Equal(t, tc.want == FallbackReply && !tc.genuine, got.Fallback)
		})
	}
}
