package router

import (
	"github.com/labstack/echo/v4"

	"localhub/internal/adapter/api/handler"
	"localhub/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	chatHandler *handler.ChatHandler,
	wsHandler *handler.WebSocketHandler,
	adminHandler *handler.AdminHandler,
	authMiddleware *middleware.AuthMiddleware,
	adminMiddleware *middleware.AdminMiddleware,
) {
	SetupChatRouter(e, chatHandler, authMiddleware)
	SetupWebSocketRouter(e, wsHandler)
	SetupFileRouter(e, authMiddleware)
	SetupAdminRouter(e, adminHandler, authMiddleware, adminMiddleware)
	SetupHealthRouter(e)
}
