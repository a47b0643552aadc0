package handler

import (
	"errors"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/repository"
)

// UserHandler holds the admin user endpoints.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

// SetQuota sets max_simultaneous_reservations.  null or 0 removes the
// ceiling.
func (h *UserHandler) SetQuota(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req struct {
		Max *int64 `json:"max_simultaneous_reservations"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var limit *uint32
	if req.Max != nil {
		if *req.Max < 0 || *req.Max > math.MaxUint32 {
			return validationFailed(c, map[string]string{
				"max_simultaneous_reservations": "max_simultaneous_reservations must be a non-negative integer",
			})
		}
		if *req.Max > 0 {
			v := uint32(*req.Max)
			limit = &v
		}
	}
	u, err := h.Users.SetQuota(c.Request().Context(), id, limit)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return internalError(c, "update quota failed", err)
	}
	return c.JSON(http.StatusOK, u)
}
