package bookings

import (
	"context"
	"time"

	"github.com/wolfman30/medspa-practice/internal/appointment"
	"github.com/wolfman30/medspa-practice/internal/scheduling"
)

// Repository persists appointments. Insert and Reschedule are the authoritative
// conflict checks and return appointment.ErrSlotUnavailable on overlap.
type Repository interface {
	Insert(ctx context.Context, a *appointment.Appointment) error
	// Get returns live (not soft-deleted) appointments only.
	Get(ctx context.Context, id string) (*appointment.Appointment, error)
	List(ctx context.Context, q appointment.Query) ([]*appointment.Appointment, error)
	// Busy returns intervals of blocking appointments intersecting [from, to).
	Busy(ctx context.Context, practitionerID string, from, to time.Time, excludeID string) ([]scheduling.Interval, error)
	// UpdateStatus moves an appointment from one status to another. It returns
	// appointment.ErrInvalidTransition if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to appointment.Status) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id string, date, start, end time.Time) (*appointment.Appointment, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	MarkInvoiceEligible(ctx context.Context, id string, at time.Time) error
}
