package bookings

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/wolfman30/medspa-practice/internal/appointment"
	"github.com/wolfman30/medspa-practice/internal/scheduling"
)

// MemoryRepository keeps appointments in process. The conflict check and the
// write happen under one lock, matching the exclusion constraint in Postgres.
type MemoryRepository struct {
	mu    sync.RWMutex
	appts map[string]*appointment.Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{appts: make(map[string]*appointment.Appointment)}
}

func (r *MemoryRepository) Insert(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.appts[a.ID]; exists {
		return fmt.Errorf("bookings: appointment %s already exists", a.ID)
	}
	if r.conflictLocked(a) {
		return appointment.ErrSlotUnavailable
	}
	r.appts[a.ID] = a.Clone()
	return nil
}

func (r *MemoryRepository) conflictLocked(a *appointment.Appointment) bool {
	if !a.Blocks() {
		return false
	}
	for _, other := range r.appts {
		if a.Conflicts(other) {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*appointment.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appts[id]
	if !ok || a.DeletedAt != nil {
		return nil, fmt.Errorf("%w: %s", appointment.ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) List(_ context.Context, q appointment.Query) ([]*appointment.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*appointment.Appointment
	for _, a := range r.appts {
		if q.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	slices.SortFunc(out, func(x, y *appointment.Appointment) int {
		if c := x.StartTime.Compare(y.StartTime); c != 0 {
			return c
		}
		if x.ID < y.ID {
			return -1
		}
		if x.ID > y.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *MemoryRepository) Busy(_ context.Context, practitionerID string, from, to time.Time, excludeID string) ([]scheduling.Interval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	window := scheduling.Interval{Start: from, End: to}
	var out []scheduling.Interval
	for _, a := range r.appts {
		if a.ID == excludeID || a.PractitionerID != practitionerID || !a.Blocks() {
			continue
		}
		if iv := a.Interval(); iv.Overlaps(window) {
			out = append(out, iv)
		}
	}
	slices.SortFunc(out, func(x, y scheduling.Interval) int { return x.Start.Compare(y.Start) })
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, from, to appointment.Status) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.DeletedAt != nil {
		return nil, fmt.Errorf("%w: %s", appointment.ErrNotFound, id)
	}
	if a.Status != from {
		return nil, fmt.Errorf("%w: %s -> %s (currently %s)", appointment.ErrInvalidTransition, from, to, a.Status)
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	return a.Clone(), nil
}

func (r *MemoryRepository) Reschedule(_ context.Context, id string, date, start, end time.Time) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.DeletedAt != nil {
		return nil, fmt.Errorf("%w: %s", appointment.ErrNotFound, id)
	}
	if a.Status != appointment.StatusScheduled {
		return nil, fmt.Errorf("%w: cannot reschedule %s appointment", appointment.ErrInvalidTransition, a.Status)
	}
	moved := a.Clone()
	moved.Date, moved.StartTime, moved.EndTime = date, start, end
	if r.conflictLocked(moved) {
		return nil, appointment.ErrSlotUnavailable
	}
	moved.UpdatedAt = time.Now().UTC()
	r.appts[id] = moved
	return moved.Clone(), nil
}

func (r *MemoryRepository) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.DeletedAt != nil {
		return fmt.Errorf("%w: %s", appointment.ErrNotFound, id)
	}
	a.DeletedAt = &at
	a.UpdatedAt = at
	return nil
}

func (r *MemoryRepository) MarkInvoiceEligible(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.Status != appointment.StatusCompleted {
		return fmt.Errorf("bookings: appointment %s is not completed", id)
	}
	if a.InvoiceEligibleAt == nil {
		a.InvoiceEligibleAt = &at
	}
	return nil
}
