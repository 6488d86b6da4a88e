// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/config"
	"github.com/iliyamo/carpool-identity/internal/handler"
	"github.com/iliyamo/carpool-identity/internal/middleware"
	"github.com/iliyamo/carpool-identity/internal/service"
)

// Deps carries what the route groups need. Redis may be nil; rate limiting
// and caching are then disabled.
type Deps struct {
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Authz     *service.Authorizer
	Log       *zap.SugaredLogger

	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Reset   *handler.ResetHandler
	Staff   *handler.StaffHandler
	Admin   *handler.AdminHandler
}

// RegisterRoutes registers the liveness and readiness checks.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers sign-in, session revalidation and password reset
// under /v1/auth and /v1, plus the caller's profile.
func RegisterAuth(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	g := e.Group("/v1/auth")
	g.POST("/login", d.Auth.Login, limit)
	g.POST("/otp/request", d.Reset.Request, limit)
	g.POST("/otp/verify", d.Reset.Verify, limit)
	g.POST("/logout", d.Auth.Logout, middleware.JWTAuth(d.JWTSecret))

	// polled by driver devices; the token itself is the credential
	e.POST("/v1/session/validate", d.Session.Validate)

	e.GET("/v1/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret))
	e.GET("/v1/permissions/catalog", handler.PermissionCatalog, middleware.NewRedisCache(d.Cache, d.Redis))
}
