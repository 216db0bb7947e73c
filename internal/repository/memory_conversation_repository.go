package repository

import (
	"context"
	"sync"

	"gemini-chat-go/internal/model"
)

type memoryConversationRepository struct {
	mu       sync.RWMutex
	sessions map[string][]model.Turn
}

// NewMemoryConversationRepository returns a repository that keeps history in
// process memory. Nothing survives a restart.
func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{sessions: make(map[string][]model.Turn)}
}

func (r *memoryConversationRepository) Append(_ context.Context, sessionID string, turn model.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], turn)
	return nil
}

func (r *memoryConversationRepository) List(_ context.Context, sessionID string) ([]model.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	turns := r.sessions[sessionID]
	out := make([]model.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (r *memoryConversationRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}
