package middleware

import (
	"github.com/labstack/echo/v4"

	"localhub/pkg/errors"
	"localhub/pkg/response"
)

type AdminMiddleware struct{}

func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{}
}

// AdminOnly must run after Authenticate; it relies on the role the auth
// middleware resolved.
func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}

		if role != "admin" {
			return response.Error(c, errors.Forbidden("Admin privileges required", nil))
		}

		return next(c)
	}
}
