// Package repository stores per-session conversation history.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gemini-chat-go/internal/model"
)

// ConversationRepository holds the ordered turns of every live session.
// Turns are only ever appended; a session's history disappears with Delete.
type ConversationRepository interface {
	Append(ctx context.Context, sessionID string, turn model.Turn) error
	List(ctx context.Context, sessionID string) ([]model.Turn, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewConversationRepository returns a Redis-backed repository. Each session is
// a list at conversation:<sessionID> whose expiry is pushed out to ttl on
// every append and every read, so abandoned sessions clean themselves up.
func NewConversationRepository(redisClient *redis.Client, ttl time.Duration) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient, ttl: ttl}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s", sessionID)
}

// Append pushes turn to the end of the session's list.
func (r *redisConversationRepository) Append(ctx context.Context, sessionID string, turn model.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	key := conversationKey(sessionID)
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// List returns the session's turns in insertion order.
func (r *redisConversationRepository) List(ctx context.Context, sessionID string) ([]model.Turn, error) {
	key := conversationKey(sessionID)
	var lrange *redis.StringSliceCmd
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	items := lrange.Val()
	turns := make([]model.Turn, 0, len(items))
	for i, item := range items {
		var t model.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Delete removes the session's history.
func (r *redisConversationRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.redisClient.Del(ctx, conversationKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation history: %w", err)
	}
	return nil
}
