package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SpaceKind enumerates the categories of bookable spaces.
type SpaceKind string

const (
	KindRoom SpaceKind = "room"
	KindDesk SpaceKind = "desk"
	KindHall SpaceKind = "hall"
)

// Valid reports whether k is one of the known space kinds.
func (k SpaceKind) Valid() bool {
	switch k {
	case KindRoom, KindDesk, KindHall:
		return true
	}
	return false
}

// Space represents a bookable physical resource with a weekly
// availability calendar.  Spaces are written by administrators only;
// the reservation engine treats them as read-only.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name.
//  Kind         – room, desk or hall.
//  Description  – free text description.
//  Capacity     – number of people the space holds (> 0).
//  Location     – free text location.
//  Availability – weekly open windows keyed by weekday.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Space struct {
	ID           uint64       `json:"id"`           // spaces.id
	Name         string       `json:"name"`         // spaces.name
	Kind         SpaceKind    `json:"type"`         // spaces.kind
	Description  string       `json:"description"`  // spaces.description
	Capacity     uint32       `json:"capacity"`     // spaces.capacity
	Location     string       `json:"location"`     // spaces.location
	Availability Availability `json:"availability"` // spaces.availability (JSON)
	CreatedAt    time.Time    `json:"created_at"`   // spaces.created_at
	UpdatedAt    time.Time    `json:"updated_at"`   // spaces.updated_at
}

// Validate checks the fields an administrator supplies when creating or
// updating a space.  It returns a map of field name to message; an empty
// map means the space is acceptable.
func (s Space) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(s.Name) == "" {
		errs["name"] = "name is required"
	} else if len(s.Name) > 255 {
		errs["name"] = "name must be at most 255 characters"
	}
	if !s.Kind.Valid() {
		errs["type"] = "type must be one of room, desk, hall"
	}
	if s.Capacity < 1 {
		errs["capacity"] = "capacity must be at least 1"
	}
	if len(s.Location) > 255 {
		errs["location"] = "location must be at most 255 characters"
	}
	if err := s.Availability.Validate(); err != nil {
		errs["availability"] = err.Error()
	}
	return errs
}

// Weekday is the lowercase English name of a calendar day.  It is the
// key of an Availability mapping.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdays = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// WeekdayOf returns the Weekday for the wall clock date of t.
func WeekdayOf(t time.Time) Weekday { return weekdays[t.Weekday()] }

// Valid reports whether d is one of the seven day names.
func (d Weekday) Valid() bool {
	for _, w := range weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// ClockTime is a time of day stored as minutes after midnight.  It is
// encoded as "HH:MM" in JSON and YAML.
type ClockTime int

// ParseClock parses "HH:MM" (a trailing ":SS" is accepted and ignored
// when zero).
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if t.Second() != 0 {
		return 0, fmt.Errorf("invalid time of day %q: seconds not supported", s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// Seconds returns the number of seconds after midnight.
func (c ClockTime) Seconds() int { return int(c) * 60 }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

func (c ClockTime) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c ClockTime) MarshalYAML() (interface{}, error) { return c.String(), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Window is a same-day opening range [Start, End].
type Window struct {
	Start ClockTime `json:"start" yaml:"start"`
	End   ClockTime `json:"end" yaml:"end"`
}

// Availability maps a weekday to its ordered opening windows.
type Availability map[Weekday][]Window

// Validate enforces the write-time invariants: known weekday keys,
// Start < End for every window and no overlap between windows of the
// same day.  An empty list marks the day as closed.  Windows are sorted
// by start as a side effect.
func (a Availability) Validate() error {
	for day, windows := range a {
		if !day.Valid() {
			return fmt.Errorf("unknown weekday %q", day)
		}
		for _, w := range windows {
			if w.Start < 0 || w.End > 24*60 || w.Start >= w.End {
				return fmt.Errorf("%s: window %s-%s must start before it ends", day, w.Start, w.End)
			}
		}
		sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
		for i := 1; i < len(windows); i++ {
			if windows[i].Start < windows[i-1].End {
				return fmt.Errorf("%s: windows %s-%s and %s-%s overlap", day,
					windows[i-1].Start, windows[i-1].End, windows[i].Start, windows[i].End)
			}
		}
	}
	return nil
}

// Covers reports whether [from, to] fits inside one window of day.
// Both bounds are inclusive.
func (a Availability) Covers(day Weekday, from, to ClockTime) bool {
	for _, w := range a[day] {
		if w.Start <= from && to <= w.End {
			return true
		}
	}
	return false
}
