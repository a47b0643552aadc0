package booking

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

func TestOverlaps(t *testing.T) {
	t.Parallel()

	h := func(hour int) time.Time { return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC) }
	cases := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"identical", h(10), h(12), h(10), h(12), true},
		{"partial", h(10), h(12), h(11), h(13), true},
		{"contained", h(10), h(14), h(11), h(12), true},
		{"touching after", h(10), h(12), h(12), h(13), false},
		{"touching before", h(12), h(13), h(10), h(12), false},
		{"disjoint", h(8), h(9), h(10), h(11), false},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
		if got := Overlaps(tc.s2, tc.e2, tc.s1, tc.e1); got != tc.want {
			t.Errorf("%s (swapped): got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFindOverlapping_FiltersStoreResults(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	h := func(hour int) time.Time { return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC) }
	for _, r := range []model.Reservation{
		{ID: 1, SpaceID: 1, StartTime: h(10), EndTime: h(12), Status: model.StatusPending},
		{ID: 2, SpaceID: 1, StartTime: h(10), EndTime: h(12), Status: model.StatusCancelled},
		{ID: 3, SpaceID: 1, StartTime: h(11), EndTime: h(13), Status: model.StatusConfirmed},
		{ID: 4, SpaceID: 1, StartTime: h(12), EndTime: h(14), Status: model.StatusPending},
		{ID: 5, SpaceID: 2, StartTime: h(10), EndTime: h(12), Status: model.StatusPending},
	} {
		store.reservations[r.ID] = r
	}

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		got, err := FindOverlapping(context.Background(), tx, 1, h(10), h(12), 0)
		if err != nil {
			return err
		}
		if ids := reservationIDs(got); !sameIDs(ids, []uint64{1, 3}) {
			t.Errorf("expected conflicts 1 and 3, got %v", ids)
		}

		got, err = FindOverlapping(context.Background(), tx, 1, h(10), h(12), 1)
		if err != nil {
			return err
		}
		if ids := reservationIDs(got); !sameIDs(ids, []uint64{3}) {
			t.Errorf("expected conflict 3 with 1 excluded, got %v", ids)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
}

func reservationIDs(rs []model.Reservation) []uint64 {
	ids := make([]uint64, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	return ids
}

func sameIDs(got, want []uint64) bool {
	if len(got) != len(want) {
		return false
	}
	seen := map[uint64]bool{}
	for _, id := range got {
		seen[id] = true
	}
	for _, id := range want {
		if !seen[id] {
			return false
		}
	}
	return true
}
