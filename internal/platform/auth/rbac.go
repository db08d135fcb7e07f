package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole guards a route group so only holders of one of the listed roles
// get through. Admins pass every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			held := RolesFromContext(c.Request().Context())
			if holdsAny(held, roles) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				"required role: "+strings.Join(roles, " or "))
		}
	}
}

func holdsAny(held, required []string) bool {
	for _, role := range held {
		if role == "admin" {
			return true
		}
		for _, want := range required {
			if role == want {
				return true
			}
		}
	}
	return false
}
