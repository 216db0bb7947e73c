package main

import (
	"github.com/gin-gonic/gin"

	"gemini-chat-go/internal/handler"
	"gemini-chat-go/internal/middleware"
	"gemini-chat-go/internal/service"
)

const chatSocketPath = "/chat/ws"

type routerDeps struct {
	chatService    service.ChatService
	sessionService service.SessionService
	model          string
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.SetHTMLTemplate(handler.PageTemplates())

	r.GET("/", handler.NewPageHandler(d.model, chatSocketPath).Index)
	r.GET("/health", handler.NewHealthHandler(d.sessionService, d.model).Check)
	r.GET(chatSocketPath, handler.NewChatHandler(d.chatService, d.sessionService).Handle)

	sessionHandler := handler.NewSessionHandler(d.chatService, d.sessionService)
	apiV1 := r.Group("/api/v1")
	{
		sessions := apiV1.Group("/sessions")
		sessions.POST("", sessionHandler.Create)

		current := sessions.Group("/current")
		current.Use(middleware.SessionMiddleware(d.sessionService))
		{
			current.GET("/turns", sessionHandler.Turns)
			current.POST("/messages", sessionHandler.Submit)
			current.DELETE("", sessionHandler.End)
			current.POST("/refresh", handler.NewAuthHandler(d.sessionService).RefreshToken)
		}
	}
	return r
}
