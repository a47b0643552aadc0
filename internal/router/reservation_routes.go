package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/middleware"
)

// RegisterReservations registers the reservation endpoints.  Ownership is
// enforced by the booking service, so users and admins share the routes.
// Writes purge the space search cache since search results depend on
// which slots are taken.
func RegisterReservations(e *echo.Echo, d Deps, limiter echo.MiddlewareFunc) {
	h := d.Reservations
	purge := middleware.PurgeOnWrite(d.Cache, d.Redis, d.Logger)

	g := e.Group("/v1/reservations", authenticated(d.JWTSecret, limiter)...)
	g.GET("", h.List)
	g.POST("", h.Create, purge)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update, purge)
	g.PATCH("/:id", h.Update, purge)
	g.DELETE("/:id", h.Cancel, purge)
}
