package router

import (
	"github.com/labstack/echo/v4"

	"localhub/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, environment string) {
	if environment != "development" {
		return
	}
	devTokenHandler := handler.GetDevTokenHandler()

	e.GET("/_dev/token/user", devTokenHandler.GenerateUserToken)
	e.GET("/_dev/token/admin", devTokenHandler.GenerateAdminToken)
}
