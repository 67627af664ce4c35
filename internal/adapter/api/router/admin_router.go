package router

import (
	"github.com/labstack/echo/v4"

	"localhub/internal/adapter/api/handler"
	"localhub/internal/adapter/api/middleware"
)

func SetupAdminRouter(e *echo.Echo, adminHandler *handler.AdminHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	admin := e.Group("/v1/admin")
	admin.Use(authMiddleware.Authenticate)
	admin.Use(adminMiddleware.AdminOnly)

	admin.GET("/presence", adminHandler.GetPresence)
}
