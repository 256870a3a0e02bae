package middleware

import (
	"net/http"

	"foodorder/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// AdminRoleGuard は管理者セッションだけを通す。未ログインは401、顧客は403。
func AdminRoleGuard() echo.MiddlewareFunc {
	return requireRole(model.RoleAdmin, "admin only")
}

func requireRole(role model.Role, denied string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := CurrentSession(c)
			switch {
			case !sess.Authenticated():
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			case sess.Identity.Role != role:
				return c.JSON(http.StatusForbidden, errorJSON(denied))
			}
			return next(c)
		}
	}
}
