package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/model"
)

// Actor returns the authenticated user stored by JWTAuth.  ok is false on
// routes that are not behind JWTAuth.
func Actor(c echo.Context) (booking.Actor, bool) {
	uid, ok := c.Get(ContextUserID).(uint64)
	if !ok || uid == 0 {
		return booking.Actor{}, false
	}
	role, _ := c.Get(ContextRole).(string)
	return booking.Actor{UserID: uid, Role: model.Role(role)}, true
}

// userID is the rate limit identity: the user id, or "anon" before
// authentication.
func userID(c echo.Context) string {
	if a, ok := Actor(c); ok {
		return strconv.FormatUint(a.UserID, 10)
	}
	return "anon"
}
