package booking

import (
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// IsWithinAvailableHours reports whether [start, end] falls inside one
// availability window of the space on the weekday of start.  Both times
// must already be expressed in the location the calendar refers to.
//
// The check fails closed: a space without availability, a weekday without
// an entry and an interval spanning midnight are all rejected.  Window
// bounds are inclusive, so a reservation may start exactly at opening and
// end exactly at closing.
func IsWithinAvailableHours(space model.Space, start, end time.Time) bool {
	if len(space.Availability) == 0 {
		return false
	}
	if !sameDay(start, end) {
		return false
	}
	windows, ok := space.Availability[model.WeekdayOf(start)]
	if !ok || len(windows) == 0 {
		return false
	}
	from, to := secondOfDay(start), secondOfDay(end)
	for _, w := range windows {
		if w.Start.Seconds() <= from && to <= w.End.Seconds() {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
