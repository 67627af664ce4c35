package router

import (
	"github.com/labstack/echo/v4"

	"localhub/internal/adapter/api/handler"
	"localhub/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chats := e.Group("/v1/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.POST("", chatHandler.StartChat)
	chats.GET("", chatHandler.GetUserChats)
	chats.GET("/search", chatHandler.SearchChats)
	chats.GET("/:id", chatHandler.GetChatByID)
	chats.PUT("/:id/status", chatHandler.UpdateChatStatus)
	chats.PUT("/:id/read", chatHandler.MarkChatAsRead)
	chats.GET("/:id/messages", chatHandler.GetChatMessages)
	chats.POST("/:id/messages", chatHandler.SendMessage)

	messages := e.Group("/v1/messages")
	messages.Use(authMiddleware.Authenticate)

	messages.PUT("/:id", chatHandler.EditMessage)
	messages.DELETE("/:id", chatHandler.DeleteMessage)
	messages.POST("/:id/reactions", chatHandler.AddReaction)
	messages.DELETE("/:id/reactions", chatHandler.RemoveReaction)
}
