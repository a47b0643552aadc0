package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/middleware"
	"github.com/iliyamo/space-reservation/internal/model"
)

// ReservationHandler exposes the reservation engine over HTTP.
type ReservationHandler struct {
	Svc *booking.Service
}

func NewReservationHandler(svc *booking.Service) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type createReservationReq struct {
	SpaceID         uint64  `json:"space_id"`
	ReservationDate string  `json:"reservation_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Purpose         *string `json:"purpose"`
}

type updateReservationReq struct {
	SpaceID         *uint64 `json:"space_id"`
	ReservationDate *string `json:"reservation_date"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	Purpose         *string `json:"purpose"`
	Status          *string `json:"status"`
}

// List returns the caller's reservations, or every reservation for admins.
func (h *ReservationHandler) List(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Svc.ListReservations(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]reservationResp, 0, len(list))
	for _, r := range list {
		items = append(items, presentReservation(r, h.Svc.Location()))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Create admits a new reservation for the caller.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	r, err := h.Svc.CreateReservation(c.Request().Context(), booking.CreateRequest{
		UserID:    actor.UserID,
		SpaceID:   req.SpaceID,
		Date:      req.ReservationDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Purpose:   req.Purpose,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, presentReservation(r, h.Svc.Location()))
}

// Get returns one reservation the caller may view.
func (h *ReservationHandler) Get(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.Svc.GetReservation(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, presentReservation(r, h.Svc.Location()))
}

// Update applies a partial change.  Omitted fields keep their value.
func (h *ReservationHandler) Update(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ch := booking.Changes{
		SpaceID:   req.SpaceID,
		Date:      req.ReservationDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Purpose:   req.Purpose,
	}
	if req.Status != nil {
		st, err := model.ParseStatus(*req.Status)
		if err != nil {
			return validationFailed(c, map[string]string{"status": "status must be one of pending, confirmed, cancelled"})
		}
		ch.Status = &st
	}
	r, err := h.Svc.UpdateReservation(c.Request().Context(), actor, id, ch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, presentReservation(r, h.Svc.Location()))
}

// Cancel marks the reservation cancelled, freeing its slot.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.Svc.CancelReservation(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "reservation cancelled",
		"reservation": presentReservation(r, h.Svc.Location()),
	})
}

// Delete removes a reservation row.  Admin only.
func (h *ReservationHandler) Delete(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Svc.DeleteReservation(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
