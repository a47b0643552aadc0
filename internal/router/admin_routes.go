package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/middleware"
	"github.com/iliyamo/space-reservation/internal/model"
)

// RegisterAdmin registers the administrator endpoints under /v1/admin.
// All of them require the admin role.
func RegisterAdmin(e *echo.Echo, d Deps, limiter echo.MiddlewareFunc) {
	purge := middleware.PurgeOnWrite(d.Cache, d.Redis, d.Logger)

	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(string(model.RoleAdmin)),
		limiter,
	)
	g.POST("/spaces", d.Spaces.Create, purge)
	g.PUT("/spaces/:id", d.Spaces.Update, purge)
	g.DELETE("/spaces/:id", d.Spaces.Delete, purge)

	g.DELETE("/reservations/:id", d.Reservations.Delete, purge)

	g.PATCH("/users/:id/quota", d.Users.SetQuota)
}
