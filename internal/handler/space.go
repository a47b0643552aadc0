package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/repository"
)

// SpaceHandler serves space search and administration.
type SpaceHandler struct {
	Spaces       *repository.SpaceRepo
	Reservations *repository.ReservationRepo
	Svc          *booking.Service
}

func NewSpaceHandler(spaces *repository.SpaceRepo, reservations *repository.ReservationRepo, svc *booking.Service) *SpaceHandler {
	if spaces == nil || reservations == nil || svc == nil {
		panic("nil dependency passed to NewSpaceHandler")
	}
	return &SpaceHandler{Spaces: spaces, Reservations: reservations, Svc: svc}
}

type spaceReq struct {
	Name         *string             `json:"name"`
	Type         *model.SpaceKind    `json:"type"`
	Description  *string             `json:"description"`
	Capacity     *uint32             `json:"capacity"`
	Location     *string             `json:"location"`
	Availability *model.Availability `json:"availability"`
}

func (r spaceReq) apply(s *model.Space) {
	if r.Name != nil {
		s.Name = strings.TrimSpace(*r.Name)
	}
	if r.Type != nil {
		s.Kind = model.SpaceKind(strings.ToLower(string(*r.Type)))
	}
	if r.Description != nil {
		s.Description = *r.Description
	}
	if r.Capacity != nil {
		s.Capacity = *r.Capacity
	}
	if r.Location != nil {
		s.Location = *r.Location
	}
	if r.Availability != nil {
		s.Availability = *r.Availability
	}
}

// Search lists spaces matching type and minimum capacity.  With a date only
// spaces open on that weekday are returned; with a date, start_time and
// end_time only spaces whose schedule covers the interval and that have no
// blocking reservation overlapping it.
func (h *SpaceHandler) Search(c echo.Context) error {
	q := c.QueryParams()
	fields := map[string]string{}

	var f repository.SpaceFilter
	if v := strings.ToLower(strings.TrimSpace(q.Get("type"))); v != "" {
		if !model.SpaceKind(v).Valid() {
			fields["type"] = "type must be one of room, desk, hall"
		}
		f.Kind = model.SpaceKind(v)
	}
	if v := strings.TrimSpace(q.Get("capacity")); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n < 1 {
			fields["capacity"] = "capacity must be an integer of at least 1"
		}
		f.MinCapacity = uint32(n)
	}
	date := strings.TrimSpace(q.Get("date"))
	from, to := strings.TrimSpace(q.Get("start_time")), strings.TrimSpace(q.Get("end_time"))
	var day time.Time
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, h.Svc.Location())
		if err != nil {
			fields["date"] = "date must be a date (YYYY-MM-DD)"
		}
		day = d
	}
	if (from != "" || to != "") && (from == "" || to == "" || date == "") {
		fields["start_time"] = "date, start_time and end_time must be given together"
	}

	var start, end time.Time
	withSlot := len(fields) == 0 && from != ""
	if withSlot {
		var err error
		start, end, err = h.Svc.ParseSlot(date, from, to)
		if err == nil && !end.After(start) {
			fields["end_time"] = "end_time must be after start_time"
		}
		var ve *booking.ValidationError
		if errors.As(err, &ve) {
			fields[ve.Field] = ve.Message
		}
	}
	if len(fields) > 0 {
		return validationFailed(c, fields)
	}

	ctx := c.Request().Context()
	spaces, err := h.Spaces.List(ctx, f)
	if err != nil {
		return internalError(c, "list spaces failed", err)
	}

	items := make([]model.Space, 0, len(spaces))
	for _, s := range spaces {
		if date != "" && len(s.Availability[model.WeekdayOf(day)]) == 0 {
			continue
		}
		if withSlot {
			if !booking.IsWithinAvailableHours(s, start, end) {
				continue
			}
			conflicts, err := h.Reservations.FindOverlapping(ctx, s.ID, start, end, 0)
			if err != nil {
				return internalError(c, "check reservations failed", err)
			}
			if len(conflicts) > 0 {
				continue
			}
		}
		items = append(items, s)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one space.
func (h *SpaceHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid space id"})
	}
	s, err := h.Spaces.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return internalError(c, "load space failed", err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create adds a space.  The availability schedule is validated here so
// stored schedules are always well formed.
func (h *SpaceHandler) Create(c echo.Context) error {
	var req spaceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var s model.Space
	req.apply(&s)
	if errs := s.Validate(); len(errs) > 0 {
		return validationFailed(c, errs)
	}
	if err := h.Spaces.Create(c.Request().Context(), &s); err != nil {
		return internalError(c, "create space failed", err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Update changes the given fields of a space.
func (h *SpaceHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid space id"})
	}
	var req spaceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	s, err := h.Spaces.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return internalError(c, "load space failed", err)
	}
	req.apply(&s)
	if errs := s.Validate(); len(errs) > 0 {
		return validationFailed(c, errs)
	}
	if err := h.Spaces.Update(ctx, &s); err != nil {
		return internalError(c, "update space failed", err)
	}
	return c.JSON(http.StatusOK, s)
}

// Delete removes a space without pending or confirmed reservations.
func (h *SpaceHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid space id"})
	}
	switch err := h.Spaces.Delete(c.Request().Context(), id); {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "space deleted"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "space has active reservations"})
	default:
		return internalError(c, "delete space failed", err)
	}
}
