package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"gemini-chat-go/internal/config"
	"gemini-chat-go/internal/repository"
	"gemini-chat-go/internal/service"
	"gemini-chat-go/pkg/database"
	"gemini-chat-go/pkg/llm"
	"gemini-chat-go/pkg/log"
	"gemini-chat-go/pkg/token"
)

const serveLongDesc string = `Start the chat server.

Serves the browser chat page on /, the chat websocket on /chat/ws
and the session REST API under /api/v1. The Gemini API key is read
from GOOGLE_API_KEY, gemini.api_key or the TOML secrets file; the
server refuses to start without one.`

const sweepInterval = time.Minute

type serveCommander struct {
	configPath *string
}

func newServeCmd(configPath *string) *cobra.Command {
	cmder := &serveCommander{configPath: configPath}

	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}
}

func (c *serveCommander) run(ctx context.Context) error {
	// 1. Config. A missing credential stops us here, before anything listens.
	if err := config.Init(*c.configPath); err != nil {
		return err
	}
	cfg := config.Conf

	// 2. Logger
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("Logger initialized")

	// 3. Conversation storage
	repo, closeRepo, err := openConversationRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	// 4. Services
	secret := cfg.JWT.Secret
	if secret == "" {
		secret = token.GenerateRandomString(32)
		log.Warnf("jwt.secret is not set, session tokens will not survive a restart")
	}
	jwtManager := token.NewJWTManager(secret, cfg.Session.TTL)
	sessionService := service.NewSessionService(repo, jwtManager)
	chatService := service.NewChatService(llm.NewClient(cfg.Gemini))

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go sweepSessions(sweepCtx, sessionService, cfg.Session.TTL)

	// 5. HTTP server
	gin.SetMode(cfg.Server.Mode)
	r := newRouter(routerDeps{
		chatService:    chatService,
		sessionService: sessionService,
		model:          cfg.Gemini.Model,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("Server listening on %s (model %s)", srv.Addr, cfg.Gemini.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// openConversationRepository picks the history backend named by session.store.
func openConversationRepository(ctx context.Context, cfg config.Config) (repository.ConversationRepository, func(), error) {
	switch cfg.Session.Store {
	case config.StoreRedis:
		rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("Conversation history stored in Redis, ttl %s", cfg.Session.TTL)
		return repository.NewConversationRepository(rdb, cfg.Session.TTL), func() { _ = rdb.Close() }, nil
	default:
		log.Info("Conversation history stored in memory")
		return repository.NewMemoryConversationRepository(), func() {}, nil
	}
}

func sweepSessions(ctx context.Context, sessions service.SessionService, maxIdle time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep(ctx, maxIdle)
		}
	}
}
