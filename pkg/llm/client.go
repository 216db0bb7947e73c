// Package llm provides a client for the Gemini generateContent API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"gemini-chat-go/internal/config"
	"gemini-chat-go/internal/model"
	"gemini-chat-go/pkg/log"
)

// FallbackReply is returned in place of a reply when the API answers
// successfully but without any usable text.
const FallbackReply = "Sorry, a response could not be generated."

const maxErrorBodyLen = 512

// Reply is one model answer. Fallback is set when the API returned no usable
// text and Text holds FallbackReply instead.
type Reply struct {
	Text     string
	Fallback bool
}

func fallback() Reply { return Reply{Text: FallbackReply, Fallback: true} }

// Client turns a conversation history into a single model reply.
type Client interface {
	// GenerateReply sends the whole history and returns the model's reply.
	// Failures are *TransportError or *UnexpectedResponseError.
	GenerateReply(ctx context.Context, history []model.Turn) (Reply, error)
}

type geminiClient struct {
	apiKey     string
	endpoint   string
	timeout    time.Duration
	generation GenerationConfig
	safety     []SafetySetting
	client     *http.Client
}

// Option customizes a client built by NewClient.
type Option func(*geminiClient)

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *geminiClient) { g.client = c }
}

// WithGenerationConfig overrides DefaultGenerationConfig.
func WithGenerationConfig(gc GenerationConfig) Option {
	return func(g *geminiClient) { g.generation = gc }
}

// WithSafetySettings overrides DefaultSafetySettings.
func WithSafetySettings(s []SafetySetting) Option {
	return func(g *geminiClient) { g.safety = append([]SafetySetting(nil), s...) }
}

// NewClient creates a Gemini client from cfg.
func NewClient(cfg config.GeminiConfig, opts ...Option) Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	g := &geminiClient{
		apiKey:     cfg.APIKey,
		endpoint:   fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, url.PathEscape(modelName)),
		timeout:    cfg.Timeout,
		generation: DefaultGenerationConfig(),
		safety:     DefaultSafetySettings(),
		// Deadlines come from the per-call context.
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (c *geminiClient) GenerateReply(ctx context.Context, history []model.Turn) (Reply, error) {
	body, err := json.Marshal(BuildRequest(history, c.generation, c.safety))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal generateContent request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to create generateContent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	log.Debugf("[GeminiClient] calling generateContent, turns: %d", len(history))
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[GeminiClient] generateContent call failed: %v", err)
		return Reply{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, &TransportError{StatusCode: 0, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warnf("[GeminiClient] generateContent returned non-2xx status: %s", resp.Status)
		return Reply{}, &TransportError{StatusCode: resp.StatusCode, Body: excerpt(respBody, maxErrorBodyLen)}
	}

	reply, err := ExtractReply(respBody)
	if err != nil {
		log.Errorf("[GeminiClient] failed to parse generateContent response: %v", err)
		return Reply{}, err
	}
	log.Infow("[GeminiClient] reply received",
		"latency", time.Since(start).String(),
		"replyLen", len(reply.Text),
		"fallback", reply.Fallback,
	)
	return reply, nil
}

// ExtractReply pulls candidates[0].content.parts[0].text out of a
// generateContent response body.
//
// A response without candidates, a candidate without content, an empty parts
// list or an empty text yields a Reply flagged as Fallback. Any other deviation from the
// expected shape is an *UnexpectedResponseError.
func ExtractReply(body []byte) (Reply, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return Reply{}, &UnexpectedResponseError{Reason: "body is not a JSON object", Err: err}
	}
	if root == nil {
		return Reply{}, &UnexpectedResponseError{Reason: "body is not a JSON object"}
	}

	rawCandidates, ok := root["candidates"]
	if !ok || isNull(rawCandidates) {
		return fallback(), nil
	}
	var candidates []json.RawMessage
	if err := json.Unmarshal(rawCandidates, &candidates); err != nil {
		return Reply{}, &UnexpectedResponseError{Reason: "candidates is not an array", Err: err}
	}
	if len(candidates) == 0 {
		return fallback(), nil
	}

	var candidate map[string]json.RawMessage
	if err := json.Unmarshal(candidates[0], &candidate); err != nil || candidate == nil {
		return Reply{}, &UnexpectedResponseError{Reason: "candidates[0] is not an object", Err: err}
	}

	// Blocked candidates come back with a finishReason and no content.
	rawContent, ok := candidate["content"]
	if !ok || isNull(rawContent) {
		return fallback(), nil
	}
	var content map[string]json.RawMessage
	if err := json.Unmarshal(rawContent, &content); err != nil || content == nil {
		return Reply{}, &UnexpectedResponseError{Reason: "candidates[0].content is not an object", Err: err}
	}

	rawParts, ok := content["parts"]
	if !ok || isNull(rawParts) {
		return Reply{}, &UnexpectedResponseError{Reason: "candidates[0].content.parts is missing"}
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(rawParts, &parts); err != nil {
		return Reply{}, &UnexpectedResponseError{Reason: "candidates[0].content.parts is not an array", Err: err}
	}
	if len(parts) == 0 {
		return fallback(), nil
	}

	var part map[string]json.RawMessage
	if err := json.Unmarshal(parts[0], &part); err != nil || part == nil {
		return Reply{}, &UnexpectedResponseError{Reason: "parts[0] is not an object", Err: err}
	}
	rawText, ok := part["text"]
	if !ok || isNull(rawText) {
		return Reply{}, &UnexpectedResponseError{Reason: "parts[0].text is missing"}
	}
	var text string
	if err := json.Unmarshal(rawText, &text); err != nil {
		return Reply{}, &UnexpectedResponseError{Reason: "parts[0].text is not a string", Err: err}
	}
	if text == "" {
		return fallback(), nil
	}
	return Reply{Text: text}, nil
}

// excerpt cuts body to at most limit bytes without splitting a UTF-8 sequence.
func excerpt(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "…"
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
