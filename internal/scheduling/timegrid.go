// Package scheduling computes conflict-free appointment slots. Nothing here does I/O.
package scheduling

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned for zero or negative slot requests.
var ErrInvalidDuration = errors.New("scheduling: duration must be positive")

// Interval is a half-open [Start, End) span.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps uses the half-open test: back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Duration of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// ClockTime is an offset from local midnight, e.g. 08:30 -> 8h30m.
type ClockTime time.Duration

// ParseClock parses "HH:MM" in 24-hour format. "24:00" is accepted as end of day.
func ParseClock(raw string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("scheduling: invalid clock time %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("scheduling: invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("scheduling: invalid minute in %q", raw)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("scheduling: clock time out of range %q", raw)
	}
	return ClockTime(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}

func (c ClockTime) String() string {
	d := time.Duration(c)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// TimeGrid describes a resource-day: working window, slot granularity and timezone.
type TimeGrid struct {
	Open        ClockTime
	Close       ClockTime
	Granularity time.Duration
	Location    *time.Location
}

// NewTimeGrid builds a grid from "HH:MM" strings.
func NewTimeGrid(open, close string, granularity time.Duration, loc *time.Location) (TimeGrid, error) {
	o, err := ParseClock(open)
	if err != nil {
		return TimeGrid{}, err
	}
	c, err := ParseClock(close)
	if err != nil {
		return TimeGrid{}, err
	}
	if c <= o {
		return TimeGrid{}, fmt.Errorf("scheduling: working hours end %s must be after start %s", c, o)
	}
	if granularity <= 0 {
		return TimeGrid{}, fmt.Errorf("scheduling: granularity must be positive, got %s", granularity)
	}
	if loc == nil {
		loc = time.UTC
	}
	return TimeGrid{Open: o, Close: c, Granularity: granularity, Location: loc}, nil
}

// On returns the wall-clock instant c on the given local day. Building it
// from hours and minutes keeps it on the clock across DST shifts; 24:00
// normalises to the next midnight.
func (c ClockTime) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	d := time.Duration(c)
	return time.Date(year, month, day, int(d/time.Hour), int(d%time.Hour/time.Minute), 0, 0, loc)
}

// Day returns the working window for the calendar day containing date.
func (g TimeGrid) Day(date time.Time) Interval {
	loc := g.location()
	y, m, d := date.In(loc).Date()
	return Interval{
		Start: g.Open.On(y, m, d, loc),
		End:   g.Close.On(y, m, d, loc),
	}
}

// Occupied clips busy intervals to the day window, sorts them and merges overlaps.
func (g TimeGrid) Occupied(date time.Time, busy []Interval) []Interval {
	window := g.Day(date)
	var clipped []Interval
	for _, b := range busy {
		if !b.End.After(b.Start) || !b.Overlaps(window) {
			continue
		}
		if b.Start.Before(window.Start) {
			b.Start = window.Start
		}
		if b.End.After(window.End) {
			b.End = window.End
		}
		clipped = append(clipped, b)
	}
	slices.SortFunc(clipped, func(a, b Interval) int { return a.Start.Compare(b.Start) })

	var merged []Interval
	for _, b := range clipped {
		if n := len(merged); n > 0 && !b.Start.After(merged[n-1].End) {
			if b.End.After(merged[n-1].End) {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// Available is the complement of Occupied within the day window.
func (g TimeGrid) Available(date time.Time, busy []Interval) []Interval {
	window := g.Day(date)
	cursor := window.Start
	var free []Interval
	for _, b := range g.Occupied(date, busy) {
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		cursor = b.End
	}
	if window.End.After(cursor) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

func (g TimeGrid) location() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}
