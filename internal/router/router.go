// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"database/sql"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/space-reservation/internal/config"
	"github.com/iliyamo/space-reservation/internal/handler"
	"github.com/iliyamo/space-reservation/internal/middleware"
	"github.com/iliyamo/space-reservation/internal/model"
)

// Deps collects what the routes need.  Redis may be nil; rate limiting and
// caching are then disabled.
type Deps struct {
	DB           *sql.DB
	Redis        *redis.Client
	Logger       *slog.Logger
	JWTSecret    string
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
	Auth         *handler.AuthHandler
	Reservations *handler.ReservationHandler
	Spaces       *handler.SpaceHandler
	Users        *handler.UserHandler
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomw.Recover())

	RegisterRoutes(e, d.DB)
	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)
	RegisterAuth(e, d.Auth, d.JWTSecret, limiter)
	RegisterReservations(e, d, limiter)
	RegisterSpaces(e, d, limiter)
	RegisterAdmin(e, d, limiter)
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout works with either a refresh token in the body or a bearer
	// token, so it is not behind JWTAuth.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", authenticated(jwtSecret, limiter)...)
	auth.GET("/me", a.Me)
}

// authenticated is the middleware chain for every signed-in route.
func authenticated(jwtSecret string, limiter echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleUser), string(model.RoleAdmin)),
		limiter,
	}
}
