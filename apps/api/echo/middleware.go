package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campushub/backend/core/user"
)

// facultyRoles are the roles allowed on authoring endpoints.
var facultyRoles = []string{user.RoleAdmin, user.RoleFaculty}

// roleMiddleware only lets requests through when the token carries one of the
// given roles.
func roleMiddleware(a *auth, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := a.getContextClaims(ctx); err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if a.contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(a *auth) echo.MiddlewareFunc {
	return roleMiddleware(a, user.RoleAdmin)
}

// facultyMiddleware allows faculty and admins.
func facultyMiddleware(a *auth) echo.MiddlewareFunc {
	return roleMiddleware(a, facultyRoles...)
}
