package appointment

import "errors"

var (
	// ErrNoServicesSelected is returned when a booking names no services.
	ErrNoServicesSelected = errors.New("appointment: no services selected")
	// ErrNoPractitionerSelected is returned when the practitioner id is absent.
	ErrNoPractitionerSelected = errors.New("appointment: no practitioner selected")
	// ErrIncompleteExternalClient is returned when an external client lacks name or phone.
	ErrIncompleteExternalClient = errors.New("appointment: external client requires first name, last name and phone")
	// ErrNoClientSelected is returned when neither a registered nor an external client is given.
	ErrNoClientSelected = errors.New("appointment: no client selected")
	// ErrSlotUnavailable is returned when the interval collides with another booking.
	ErrSlotUnavailable = errors.New("appointment: slot unavailable")
	// ErrInvalidTransition is returned for status changes the lifecycle forbids.
	ErrInvalidTransition = errors.New("appointment: invalid status transition")
	// ErrForbidden is returned when the caller may not act on the appointment.
	ErrForbidden = errors.New("appointment: forbidden")
	// ErrNotFound is returned when the appointment does not exist or is soft-deleted.
	ErrNotFound = errors.New("appointment: not found")
)

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoServicesSelected) ||
		errors.Is(err, ErrNoPractitionerSelected) ||
		errors.Is(err, ErrIncompleteExternalClient) ||
		errors.Is(err, ErrNoClientSelected)
}
