// Package database opens connections to backing stores.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gemini-chat-go/internal/config"
	"gemini-chat-go/pkg/log"
)

// InitRedis connects to Redis and checks the connection with a PING.
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Infof("Redis client connected to %s (db %d)", cfg.Addr, cfg.DB)
	return rdb, nil
}
