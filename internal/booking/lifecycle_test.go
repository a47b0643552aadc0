package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/space-reservation/internal/model"
)

func TestTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to model.Status
		want     error
	}{
		{model.StatusPending, model.StatusConfirmed, nil},
		{model.StatusPending, model.StatusCancelled, nil},
		{model.StatusPending, model.StatusPending, nil},
		{model.StatusConfirmed, model.StatusCancelled, nil},
		{model.StatusConfirmed, model.StatusPending, ErrInvalidTransition},
		{model.StatusCancelled, model.StatusPending, ErrInvalidTransition},
		{model.StatusCancelled, model.StatusConfirmed, ErrInvalidTransition},
		{model.StatusPending, model.Status("done"), ErrInvalidInput},
	}
	for _, tc := range cases {
		err := Transition(tc.from, tc.to)
		if tc.want == nil && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, err)
		}
	}
}

func TestOwnershipPolicy(t *testing.T) {
	t.Parallel()

	p := OwnershipPolicy{}
	owner := Actor{UserID: 1, Role: model.RoleUser}
	other := Actor{UserID: 2, Role: model.RoleUser}
	admin := Actor{UserID: 3, Role: model.RoleAdmin}
	pending := model.Reservation{UserID: 1, Status: model.StatusPending}
	confirmed := model.Reservation{UserID: 1, Status: model.StatusConfirmed}

	if !p.CanView(owner, pending) || p.CanView(other, pending) || !p.CanView(admin, pending) {
		t.Errorf("unexpected view decisions")
	}
	if !p.CanUpdate(owner, pending) || p.CanUpdate(owner, confirmed) || !p.CanUpdate(admin, confirmed) {
		t.Errorf("unexpected update decisions")
	}
	if !p.CanCancel(owner, confirmed) || p.CanCancel(other, confirmed) || !p.CanCancel(admin, confirmed) {
		t.Errorf("unexpected cancel decisions")
	}
}

func TestQuotaChecker_UnlimitedSkipsCount(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	for i := uint64(1); i <= 3; i++ {
		store.reservations[i] = model.Reservation{ID: i, UserID: 1, Status: model.StatusPending}
	}
	zero := uint32(0)
	q := QuotaChecker{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	err := store.WithinTx(ctx, func(tx Tx) error {
		if err := q.Check(ctx, tx, model.User{ID: 1}); err != nil {
			t.Errorf("nil limit: %v", err)
		}
		if err := q.Check(ctx, tx, model.User{ID: 1, MaxSimultaneousReservations: &zero}); err != nil {
			t.Errorf("zero limit: %v", err)
		}
		three := uint32(3)
		if err := q.Check(ctx, tx, model.User{ID: 1, MaxSimultaneousReservations: &three}); !errors.Is(err, ErrQuotaExceeded) {
			t.Errorf("limit 3 with 3 reservations: expected ErrQuotaExceeded, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
}
