package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-identity/internal/middleware"
	"github.com/iliyamo/carpool-identity/internal/model"
)

// RegisterAdmin registers the back-office endpoints under /v1/admin. Every
// route requires a valid JWT and a stored role of admin or staff; finer
// checks happen per route or inside the mutation services.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(d.Authz, d.Log, model.RoleAdmin, model.RoleStaff),
	)

	g.GET("/permissions", d.Admin.MyPermissions)
	g.GET("/permissions/:key", d.Admin.CheckPermission)
	g.GET("/audit-logs", d.Admin.AuditLogs, middleware.RequirePermission(d.Authz, model.PermAuditLogsView, d.Log))

	// staff management is reserved to admins, not delegated through grants
	staff := g.Group("/staff", middleware.RequireRole(d.Authz, d.Log, model.RoleAdmin))
	staff.POST("", d.Staff.Create)
	staff.PUT("/:id", d.Staff.Update)
	staff.DELETE("/:id", d.Staff.Delete)

	g.PUT("/drivers/:id/premium", d.Admin.SetDriverPremium)
	g.PUT("/drivers/:id/verification", d.Admin.SetDriverVerified)
	g.DELETE("/banners/:id", d.Admin.DeleteBanner)
	g.DELETE("/reviews/:id", d.Admin.DeleteReview)
	g.DELETE("/messages/:id", d.Admin.DeleteMessage)
	g.PUT("/messages/:id/status", d.Admin.SetMessageStatus)
}
