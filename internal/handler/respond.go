package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/logging"
	"github.com/iliyamo/space-reservation/internal/model"
)

const invalidDataMessage = "The given data was invalid."

func loggerFor(c echo.Context) *slog.Logger {
	if l := logging.FromContext(c.Request().Context()); l != nil {
		return l
	}
	return slog.Default()
}

// validationFailed writes the 422 body {"message", "errors": {field: [msg]}}.
func validationFailed(c echo.Context, fields map[string]string) error {
	errs := make(map[string][]string, len(fields))
	for k, v := range fields {
		errs[k] = []string{v}
	}
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": invalidDataMessage, "errors": errs})
}

func internalError(c echo.Context, msg string, err error) error {
	loggerFor(c).ErrorContext(c.Request().Context(), msg, slog.Any("error", err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// writeError maps an engine error onto a response.  Rejections become 422
// with the offending field; lookups, authorization and lifecycle errors
// keep their own status codes.
func writeError(c echo.Context, err error) error {
	kind := booking.ErrorKind(err)
	if booking.IsRejection(err) {
		loggerFor(c).InfoContext(c.Request().Context(), "reservation rejected",
			slog.String("kind", kind), slog.String("reason", err.Error()))

		var ve *booking.ValidationError
		if !errors.As(err, &ve) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error()})
		}
		field := ve.Field
		if field == "" {
			field = "reservation"
		}
		body := echo.Map{"message": ve.Message, "errors": map[string][]string{field: {ve.Message}}}
		if len(ve.Conflicts) > 0 {
			ids := make([]uint64, 0, len(ve.Conflicts))
			for _, r := range ve.Conflicts {
				ids = append(ids, r.ID)
			}
			body["conflicting_reservation_ids"] = ids
		}
		return c.JSON(http.StatusUnprocessableEntity, body)
	}

	switch {
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	return internalError(c, "internal error", err)
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// reservationResp presents a reservation with its times in the service
// location.
type reservationResp struct {
	ID              uint64       `json:"id"`
	SpaceID         uint64       `json:"space_id"`
	UserID          uint64       `json:"user_id"`
	ReservationDate string       `json:"reservation_date"`
	StartTime       string       `json:"start_time"`
	EndTime         string       `json:"end_time"`
	Purpose         *string      `json:"purpose"`
	Status          model.Status `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Space           *model.Space `json:"space,omitempty"`
	User            *model.User  `json:"user,omitempty"`
}

func presentReservation(r model.Reservation, loc *time.Location) reservationResp {
	if loc == nil {
		loc = time.UTC
	}
	return reservationResp{
		ID:              r.ID,
		SpaceID:         r.SpaceID,
		UserID:          r.UserID,
		ReservationDate: r.ReservationDate,
		StartTime:       r.StartTime.In(loc).Format(time.RFC3339),
		EndTime:         r.EndTime.In(loc).Format(time.RFC3339),
		Purpose:         r.Purpose,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Space:           r.Space,
		User:            r.User,
	}
}
