package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// RoleResolver re-reads an identity's role from the store.
type RoleResolver interface {
	Role(ctx context.Context, identityID string) (model.Role, error)
}

// RequireRole admits the request only when the stored role of the caller is
// one of roles. The JWT role claim is ignored so that a demoted account
// loses access on its next request. A failed read answers 503.
func RequireRole(resolver RoleResolver, log *zap.SugaredLogger, roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := UserID(c)
			if id == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			role, err := resolver.Role(c.Request().Context(), id)
			if err != nil {
				log.Errorw("role lookup failed", "identity_id", id, "error", err)
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authorization temporarily unavailable"})
			}
			if !allowed[role] {
				log.Warnw("role denied", "identity_id", id, "role", string(role), "path", c.Path())
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
