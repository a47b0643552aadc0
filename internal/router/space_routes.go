package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/middleware"
)

// RegisterSpaces registers space search and detail.  Search responses are
// cached in Redis.
func RegisterSpaces(e *echo.Echo, d Deps, limiter echo.MiddlewareFunc) {
	h := d.Spaces
	g := e.Group("/v1/spaces", authenticated(d.JWTSecret, limiter)...)
	g.GET("", h.Search, middleware.NewRedisCache(d.Cache, d.Redis))
	g.GET("/:id", h.Get)
}
