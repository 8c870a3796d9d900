package notify

import (
	"context"
	"fmt"
	"time"
)

// InvoiceMarker flags an appointment as ready to invoice.
type InvoiceMarker interface {
	MarkInvoiceEligible(ctx context.Context, appointmentID string, at time.Time) error
}

// InvoiceDispatcher marks the appointment invoice-eligible and, when an email
// sender is configured and the client has an address, emails the invoice notice.
type InvoiceDispatcher struct {
	marker   InvoiceMarker
	email    EmailSender
	practice string
	location *time.Location
	now      func() time.Time
}

func NewInvoiceDispatcher(marker InvoiceMarker, email EmailSender, practice string, loc *time.Location) *InvoiceDispatcher {
	if marker == nil {
		panic("notify: invoice marker required")
	}
	return &InvoiceDispatcher{
		marker:   marker,
		email:    email,
		practice: practice,
		location: loc,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *InvoiceDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := d.marker.MarkInvoiceEligible(ctx, msg.Appointment.ID, d.now()); err != nil {
		return fmt.Errorf("notify: mark invoice eligible: %w", err)
	}
	if d.email == nil || msg.Contact.Email == "" {
		return nil
	}
	if err := d.email.Send(ctx, InvoiceEmail(msg, d.practice, d.location)); err != nil {
		return fmt.Errorf("notify: invoice email: %w", err)
	}
	return nil
}
