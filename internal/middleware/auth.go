package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"storefront/internal/model"
)

// Denied is the body of a 401/403 from the guards. Redirect tells a browser
// client where to send the user.
type Denied struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// RequireUser waits up to timeout for the session's profile. Callers with a
// session whose profile never loads are sent back to login with
// error=profile_load_timeout.
func RequireUser(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := UserSessionFrom(c)
			if s == nil {
				return c.JSON(http.StatusUnauthorized, Denied{Error: "not authenticated", Redirect: "/login"})
			}

			user, err := s.WaitForProfile(c.Request().Context(), timeout)
			switch {
			case errors.Is(err, model.ErrProfileTimeout):
				return c.JSON(http.StatusUnauthorized, Denied{
					Error:    "profile_load_timeout",
					Redirect: "/login?error=profile_load_timeout",
				})
			case err != nil:
				return c.JSON(http.StatusUnauthorized, Denied{Error: "not authenticated", Redirect: "/login"})
			}

			c.Set(userKey, user)
			c.Set(userIDKey, user.ID)
			return next(c)
		}
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin(adminSuffix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return c.JSON(http.StatusUnauthorized, Denied{Error: "not authenticated", Redirect: "/login?redirect=/admin"})
			}
			if !model.IsAdminUser(user, adminSuffix) {
				return c.JSON(http.StatusForbidden, Denied{Error: "admin access required", Redirect: "/"})
			}
			return next(c)
		}
	}
}
