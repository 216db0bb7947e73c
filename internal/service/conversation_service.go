// Package service contains the chat application's business logic.
package service

import (
	"context"
	"fmt"

	"gemini-chat-go/internal/model"
	"gemini-chat-go/internal/repository"
)

// ConversationStore is the ordered, append-only history of one session.
// Role alternation is not enforced.
type ConversationStore struct {
	repo      repository.ConversationRepository
	sessionID string
}

// NewConversationStore binds a store to sessionID.
func NewConversationStore(repo repository.ConversationRepository, sessionID string) *ConversationStore {
	return &ConversationStore{repo: repo, sessionID: sessionID}
}

// Append adds turn to the end of the history.
func (s *ConversationStore) Append(ctx context.Context, turn model.Turn) error {
	if err := s.repo.Append(ctx, s.sessionID, turn); err != nil {
		return fmt.Errorf("failed to append %s turn: %w", turn.Role, err)
	}
	return nil
}

// All returns a snapshot of the history in chronological order.
func (s *ConversationStore) All(ctx context.Context) ([]model.Turn, error) {
	turns, err := s.repo.List(ctx, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return turns, nil
}

// reset drops the history. Only the session service calls it, when the session ends.
func (s *ConversationStore) reset(ctx context.Context) error {
	return s.repo.Delete(ctx, s.sessionID)
}
