package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gemini-chat-go/internal/model"
	"gemini-chat-go/pkg/llm"
	"gemini-chat-go/pkg/log"
)

// ErrEmptyMessage is returned for a submit whose text is empty or whitespace only.
// Nothing is recorded and the model is not called.
var ErrEmptyMessage = errors.New("message is empty")

// SubmitResult is the outcome of one successful submit.
type SubmitResult struct {
	Reply    string
	Fallback bool
	// Turns is the history after the assistant turn was appended.
	Turns []model.Turn
}

// ChatService runs one conversation turn: record the user message, ask the model, record the reply.
type ChatService interface {
	Submit(ctx context.Context, sess *Session, text string) (*SubmitResult, error)
}

type chatService struct {
	llmClient llm.Client
}

// NewChatService creates a ChatService backed by llmClient.
func NewChatService(llmClient llm.Client) ChatService {
	return &chatService{llmClient: llmClient}
}

// Submit appends the user turn, sends the full history and appends the reply.
// On a model error the user turn stays in the history and no assistant turn is added.
func (s *chatService) Submit(ctx context.Context, sess *Session, text string) (*SubmitResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	sess.Lock()
	defer sess.Unlock()
	if sess.Ended() {
		return nil, ErrSessionNotFound
	}
	sess.Touch(time.Now())

	store := sess.Store
	if err := store.Append(ctx, model.UserTurn(text)); err != nil {
		return nil, err
	}
	history, err := store.All(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := s.llmClient.GenerateReply(ctx, history)
	if err != nil {
		log.Errorf("[ChatService] session %s: reply generation failed after %d turn(s): %v", sess.ID, len(history), err)
		return nil, err
	}

	if err := store.Append(ctx, model.AssistantTurn(reply.Text)); err != nil {
		return nil, err
	}
	turns, err := store.All(ctx)
	if err != nil {
		return nil, err
	}

	if reply.Fallback {
		log.Warnf("[ChatService] session %s: model returned no text, using fallback reply", sess.ID)
	}
	return &SubmitResult{Reply: reply.Text, Fallback: reply.Fallback, Turns: turns}, nil
}
