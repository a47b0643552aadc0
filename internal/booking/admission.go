package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/space-reservation/internal/logging"
	"github.com/iliyamo/space-reservation/internal/model"
)

const (
	dateLayout       = "2006-01-02"
	maxPurposeLength = 255
)

// Service is the reservation admission engine.  Every mutating operation
// runs inside one Store transaction; ReservationCreated events are
// published after commit on their own goroutine.
type Service struct {
	store  Store
	sink   EventSink
	policy Policy
	quota  QuotaChecker
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger

	publishTimeout time.Duration
	strictCancel   bool

	inflight sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithEventSink sets the sink for ReservationCreated events.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithPolicy replaces the default OwnershipPolicy.
func WithPolicy(p Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithClock sets the time source used for "now" checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the location in which weekdays, times of day and
// reservation dates are evaluated.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQuotaStatuses overrides the statuses counted toward the user quota.
func WithQuotaStatuses(statuses ...model.Status) Option {
	return func(s *Service) { s.quota.Statuses = statuses }
}

// WithPublishTimeout bounds each event publication.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithStrictCancel restricts cancellation to pending and confirmed
// reservations.  Without it cancelling is unconditional.
func WithStrictCancel(strict bool) Option {
	return func(s *Service) { s.strictCancel = strict }
}

// NewService builds a Service over the given store.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("nil store passed to NewService")
	}
	s := &Service{
		store:          store,
		sink:           NopSink{},
		policy:         OwnershipPolicy{},
		quota:          QuotaChecker{Statuses: DefaultQuotaStatuses},
		now:            time.Now,
		loc:            time.UTC,
		logger:         slog.Default(),
		publishTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the location reservations are evaluated in.
func (s *Service) Location() *time.Location { return s.loc }

// ParseSlot resolves a local date and two times of day to instants in the
// service location.  Errors are *ValidationError values.
func (s *Service) ParseSlot(date, from, to string) (time.Time, time.Time, error) {
	return s.slot(date, from, to)
}

// CreateRequest is the boundary form of a reservation request: a local
// date plus start and end times of day, as submitted by clients.
type CreateRequest struct {
	UserID    uint64
	SpaceID   uint64
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM, HH:MM:SS or RFC 3339
	EndTime   string
	Purpose   *string
}

// CreateReservation validates and parses req and admits it.
func (s *Service) CreateReservation(ctx context.Context, req CreateRequest) (model.Reservation, error) {
	if req.SpaceID == 0 {
		return model.Reservation{}, invalid("space_id", "space_id is required")
	}
	if strings.TrimSpace(req.Date) == "" {
		return model.Reservation{}, invalid("reservation_date", "reservation_date is required")
	}
	if strings.TrimSpace(req.StartTime) == "" {
		return model.Reservation{}, invalid("start_time", "start_time is required")
	}
	if strings.TrimSpace(req.EndTime) == "" {
		return model.Reservation{}, invalid("end_time", "end_time is required")
	}
	start, end, err := s.slot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return model.Reservation{}, err
	}
	return s.Admit(ctx, req.UserID, req.SpaceID, start, end, req.Purpose)
}

// Admit runs the admission checks for a new reservation and persists it
// with status pending.  Checks run in order and stop at the first
// failure: input, space existence, availability, overlap, quota.
func (s *Service) Admit(ctx context.Context, userID, spaceID uint64, start, end time.Time, purpose *string) (model.Reservation, error) {
	now := s.now()
	if err := validateInterval(start, end, now); err != nil {
		return model.Reservation{}, err
	}
	purpose, err := normalisePurpose(purpose)
	if err != nil {
		return model.Reservation{}, err
	}
	start, end = start.In(s.loc), end.In(s.loc)

	var created model.Reservation
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		space, err := tx.LockSpace(ctx, spaceID)
		if err != nil {
			return storeErr("lock space", err)
		}
		if !IsWithinAvailableHours(space, start, end) {
			return outsideAvailability()
		}
		conflicts, err := FindOverlapping(ctx, tx, spaceID, start, end, 0)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return overlapping(conflicts)
		}
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return storeErr("load user", err)
		}
		if err := s.quota.Check(ctx, tx, user); err != nil {
			return err
		}

		r := model.Reservation{
			SpaceID:         spaceID,
			UserID:          userID,
			ReservationDate: start.Format(dateLayout),
			StartTime:       start,
			EndTime:         end,
			Purpose:         purpose,
			Status:          model.StatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertReservation(ctx, &r); err != nil {
			return fmt.Errorf("booking: insert reservation: %w", err)
		}
		r.Space = &space
		r.User = &user
		created = r
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}

	s.logger.DebugContext(ctx, "reservation admitted",
		slog.Uint64("reservation_id", created.ID), slog.Uint64("space_id", spaceID), slog.Uint64("user_id", userID))
	s.publish(ctx, ReservationCreated{Reservation: detach(created), OccurredAt: now})
	return created, nil
}

// Changes holds the fields of an update request.  Nil fields keep the
// reservation's current value.  An empty Purpose clears it.
type Changes struct {
	SpaceID   *uint64
	Date      *string
	StartTime *string
	EndTime   *string
	Purpose   *string
	Status    *model.Status
}

func (c Changes) touchesInterval() bool {
	return c.Date != nil || c.StartTime != nil || c.EndTime != nil
}

// UpdateReservation overlays ch onto the reservation and re-runs the
// availability and overlap checks against the effective interval,
// excluding the reservation itself.  The quota is not re-checked.
// Nothing is written unless every check passes.
func (s *Service) UpdateReservation(ctx context.Context, actor Actor, id uint64, ch Changes) (model.Reservation, error) {
	now := s.now()
	var updated model.Reservation
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		current, err := tx.GetReservationForUpdate(ctx, id)
		if err != nil {
			return storeErr("load reservation", err)
		}
		if !s.policy.CanUpdate(actor, current) {
			return ErrForbidden
		}

		next := current
		start, end := current.StartTime.In(s.loc), current.EndTime.In(s.loc)
		if ch.touchesInterval() {
			date := start.Format(dateLayout)
			if ch.Date != nil {
				date = *ch.Date
			}
			from, to := start.Format("15:04:05"), end.Format("15:04:05")
			if ch.StartTime != nil {
				from = *ch.StartTime
			}
			if ch.EndTime != nil {
				to = *ch.EndTime
			}
			if start, end, err = s.slot(date, from, to); err != nil {
				return err
			}
			if err := validateInterval(start, end, now); err != nil {
				return err
			}
		}

		spaceID := current.SpaceID
		if ch.SpaceID != nil {
			if *ch.SpaceID == 0 {
				return invalid("space_id", "space_id is required")
			}
			spaceID = *ch.SpaceID
		}

		if ch.Status != nil {
			if err := Transition(current.Status, *ch.Status); err != nil {
				return err
			}
			next.Status = *ch.Status
		}
		if ch.Purpose != nil {
			if next.Purpose, err = normalisePurpose(ch.Purpose); err != nil {
				return err
			}
		}

		space, err := lockSpaces(ctx, tx, current.SpaceID, spaceID)
		if err != nil {
			return err
		}
		if !IsWithinAvailableHours(space, start, end) {
			return outsideAvailability()
		}
		conflicts, err := FindOverlapping(ctx, tx, spaceID, start, end, current.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return overlapping(conflicts)
		}

		next.SpaceID = spaceID
		next.StartTime, next.EndTime = start, end
		next.ReservationDate = start.Format(dateLayout)
		next.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, &next); err != nil {
			return fmt.Errorf("booking: update reservation: %w", err)
		}
		next.Space = &space
		if user, err := tx.GetUser(ctx, next.UserID); err == nil {
			next.User = &user
		}
		updated = next
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return updated, nil
}

// CancelReservation marks the reservation cancelled, freeing its slot.
// Cancelling does not look at the current status unless the service was
// built WithStrictCancel, in which case only pending and confirmed
// reservations can be cancelled.  Cancelling an already cancelled
// reservation is a no-op.
func (s *Service) CancelReservation(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	now := s.now()
	var out model.Reservation
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		r, err := tx.GetReservationForUpdate(ctx, id)
		if err != nil {
			return storeErr("load reservation", err)
		}
		if !s.policy.CanCancel(actor, r) {
			return ErrForbidden
		}
		if s.strictCancel && !r.Status.Blocking() {
			return fmt.Errorf("%s -> %s: %w", r.Status, model.StatusCancelled, ErrInvalidTransition)
		}
		if r.Status != model.StatusCancelled {
			r.Status = model.StatusCancelled
			r.UpdatedAt = now
			if err := tx.UpdateReservation(ctx, &r); err != nil {
				return fmt.Errorf("booking: cancel reservation: %w", err)
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return out, nil
}

// DeleteReservation removes a reservation row.  It is an administrative
// override and is refused for every other actor.
func (s *Service) DeleteReservation(ctx context.Context, actor Actor, id uint64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return s.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.GetReservationForUpdate(ctx, id); err != nil {
			return storeErr("load reservation", err)
		}
		if err := tx.DeleteReservation(ctx, id); err != nil {
			return storeErr("delete reservation", err)
		}
		return nil
	})
}

// GetReservation returns a reservation the actor is allowed to view.
func (s *Service) GetReservation(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, storeErr("load reservation", err)
	}
	if !s.policy.CanView(actor, r) {
		return model.Reservation{}, ErrForbidden
	}
	return r, nil
}

// ListReservations returns every reservation for administrators and the
// actor's own reservations otherwise, newest first.
func (s *Service) ListReservations(ctx context.Context, actor Actor) ([]model.Reservation, error) {
	filter := ListFilter{UserID: actor.UserID}
	if actor.IsAdmin() {
		filter.UserID = 0
	}
	list, err := s.store.ListReservations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("booking: list reservations: %w", err)
	}
	return list, nil
}

// Drain waits for in-flight event publications to finish or for ctx to
// be done.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) publish(ctx context.Context, ev ReservationCreated) {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = s.logger
	}
	base := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("event sink panicked", slog.Any("panic", p), slog.Uint64("reservation_id", ev.Reservation.ID))
			}
		}()
		pctx, cancel := context.WithTimeout(base, s.publishTimeout)
		defer cancel()
		if err := s.sink.Publish(pctx, ev); err != nil {
			logger.Warn("reservation event dropped", slog.Any("error", err), slog.Uint64("reservation_id", ev.Reservation.ID))
		}
	}()
}

// slot combines a local date with start and end times of day.
func (s *Service) slot(date, from, to string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("reservation_date", "reservation_date must be a date (YYYY-MM-DD)")
	}
	start, err := s.atClock(day, from)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("start_time", err.Error())
	}
	end, err := s.atClock(day, to)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("end_time", err.Error())
	}
	return start, end, nil
}

func (s *Service) atClock(day time.Time, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var t time.Time
	var err error
	for _, layout := range []string{"15:04", "15:04:05", time.RFC3339} {
		if t, err = time.Parse(layout, raw); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", raw)
	}
	if t.Year() > 0 {
		t = t.In(s.loc)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, s.loc), nil
}

func validateInterval(start, end, now time.Time) error {
	if !start.After(now) {
		return invalid("start_time", "start_time must be in the future")
	}
	if !end.After(start) {
		return invalid("end_time", "end_time must be after start_time")
	}
	return nil
}

func normalisePurpose(p *string) (*string, error) {
	if p == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > maxPurposeLength {
		return nil, invalid("purpose", fmt.Sprintf("purpose must be at most %d characters", maxPurposeLength))
	}
	return &v, nil
}

// lockSpaces locks the current and target spaces in ascending id order
// and returns the target space.
func lockSpaces(ctx context.Context, tx Tx, current, target uint64) (model.Space, error) {
	first, second := current, target
	if first > second {
		first, second = second, first
	}
	sp, err := tx.LockSpace(ctx, first)
	if err != nil {
		return model.Space{}, storeErr("lock space", err)
	}
	if first == second {
		return sp, nil
	}
	other, err := tx.LockSpace(ctx, second)
	if err != nil {
		return model.Space{}, storeErr("lock space", err)
	}
	if other.ID == target {
		return other, nil
	}
	return sp, nil
}

func outsideAvailability() error {
	return &ValidationError{
		Field:   "start_time",
		Message: "the requested time is outside the space's available hours",
		Err:     ErrOutsideAvailability,
	}
}

func overlapping(conflicts []model.Reservation) error {
	return &ValidationError{
		Field:     "start_time",
		Message:   "the space is already reserved for the selected time",
		Err:       ErrOverlap,
		Conflicts: conflicts,
	}
}

// storeErr keeps ErrNotFound classifiable and wraps everything else as a
// storage failure.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("booking: %s: %w", op, err)
}

// detach copies the relations so the event does not share memory with
// the value returned to the caller.
func detach(r model.Reservation) model.Reservation {
	if r.Space != nil {
		sp := *r.Space
		r.Space = &sp
	}
	if r.User != nil {
		u := *r.User
		r.User = &u
	}
	if r.Purpose != nil {
		p := *r.Purpose
		r.Purpose = &p
	}
	return r
}
