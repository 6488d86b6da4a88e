package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
)

// PermissionChecker is satisfied by *service.Authorizer.
type PermissionChecker interface {
	Check(ctx context.Context, identityID string, p model.Permission) (bool, error)
}

// RequirePermission gates a route on a single permission key: 403 on a
// denial, 503 when the store could not be read. Both deny.
func RequirePermission(checker PermissionChecker, p model.Permission, log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := UserID(c)
			if id == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			ok, err := checker.Check(c.Request().Context(), id, p)
			switch {
			case errors.Is(err, service.ErrAuthzUnavailable):
				log.Errorw("permission check failed", "identity_id", id, "permission", string(p), "error", err)
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authorization temporarily unavailable"})
			case err != nil:
				log.Errorw("permission check rejected", "identity_id", id, "permission", string(p), "error", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			case !ok:
				log.Warnw("permission denied", "identity_id", id, "permission", string(p), "path", c.Path())
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
