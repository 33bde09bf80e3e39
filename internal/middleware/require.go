package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
)

// RequireMinRole rejects anonymous requests with 401 and callers whose highest
// role ranks below min with 403. Place it after Session.
func RequireMinRole(min auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := AuthContext(c)
			if ac == nil || ac.User == nil {
				return reject(c, apperrors.ErrUnauthorized)
			}
			if !auth.HasRoleOrHigher(ac.Roles(), min) {
				return reject(c, fmt.Errorf("%w: requires %s or higher", apperrors.ErrForbidden, min))
			}
			return next(c)
		}
	}
}

func reject(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
}
