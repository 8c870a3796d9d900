package scheduling

import (
	"iter"
	"slices"
	"time"
)

// SlotRequest asks for bookable starts for one practitioner on one day.
type SlotRequest struct {
	PractitionerID string
	Date           time.Time
	Duration       time.Duration
	// Busy holds the practitioner's non-cancelled appointments for the day.
	Busy []Interval
	// NotBefore drops candidates starting earlier. Zero keeps every candidate.
	NotBefore time.Time
}

// Slots yields candidate start times in chronological order such that
// [start, start+duration) stays inside the working window and overlaps no busy interval.
// The result is advisory; the booking insert is the authoritative conflict check.
func (g TimeGrid) Slots(req SlotRequest) (iter.Seq[time.Time], error) {
	if req.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	window := g.Day(req.Date)
	busy := g.Occupied(req.Date, req.Busy)
	step := g.Granularity
	if step <= 0 {
		step = req.Duration
	}

	return func(yield func(time.Time) bool) {
		next := 0
		for start := window.Start; !start.Add(req.Duration).After(window.End); start = start.Add(step) {
			if !req.NotBefore.IsZero() && start.Before(req.NotBefore) {
				continue
			}
			candidate := Interval{Start: start, End: start.Add(req.Duration)}
			// busy is sorted; skip intervals that end before this candidate.
			for next < len(busy) && !busy[next].End.After(candidate.Start) {
				next++
			}
			if next < len(busy) && candidate.Overlaps(busy[next]) {
				continue
			}
			if !yield(start) {
				return
			}
		}
	}, nil
}

// AvailableSlots is the eager form of Slots.
func (g TimeGrid) AvailableSlots(req SlotRequest) ([]time.Time, error) {
	seq, err := g.Slots(req)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// Fits reports whether [start, start+duration) lies in the working window and is free.
func (g TimeGrid) Fits(start time.Time, duration time.Duration, busy []Interval) bool {
	if duration <= 0 {
		return false
	}
	window := g.Day(start)
	candidate := Interval{Start: start, End: start.Add(duration)}
	if candidate.Start.Before(window.Start) || candidate.End.After(window.End) {
		return false
	}
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return false
		}
	}
	return true
}
