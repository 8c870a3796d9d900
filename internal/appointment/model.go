// Package appointment holds the booking domain model, its lifecycle rules and
// role-based visibility.
package appointment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/medspa-practice/internal/scheduling"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status string.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return s, true
	default:
		return "", false
	}
}

// Client is either a RegisteredClient or an ExternalClient.
type Client interface {
	isClient()
}

// RegisteredClient references a user in the client table.
type RegisteredClient struct {
	ID string
}

// ExternalClient is a walk-in captured inline on the appointment.
type ExternalClient struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

func (RegisteredClient) isClient() {}
func (ExternalClient) isClient()   {}

// Complete reports whether the required external fields are present.
func (e ExternalClient) Complete() bool {
	return strings.TrimSpace(e.FirstName) != "" &&
		strings.TrimSpace(e.LastName) != "" &&
		strings.TrimSpace(e.Phone) != ""
}

// FullName joins first and last name.
func (e ExternalClient) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Appointment is one booked visit. Duration and price are snapshots taken at booking time.
type Appointment struct {
	ID                string
	PractitionerID    string
	Client            Client
	ServiceIDs        []string
	TotalDuration     time.Duration
	TotalPrice        decimal.Decimal
	Date              time.Time
	StartTime         time.Time
	EndTime           time.Time
	Status            Status
	Notes             string
	InvoiceEligibleAt *time.Time
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsExternalClient reports whether the subject is an unregistered client.
func (a *Appointment) IsExternalClient() bool {
	_, ok := a.Client.(ExternalClient)
	return ok
}

// RegisteredClientID returns the client id when the subject is registered.
func (a *Appointment) RegisteredClientID() (string, bool) {
	rc, ok := a.Client.(RegisteredClient)
	if !ok || rc.ID == "" {
		return "", false
	}
	return rc.ID, true
}

// Interval is the half-open [start, end) occupied by the appointment.
func (a *Appointment) Interval() scheduling.Interval {
	return scheduling.Interval{Start: a.StartTime, End: a.EndTime}
}

// Blocks reports whether the appointment occupies the practitioner's calendar.
func (a *Appointment) Blocks() bool {
	return a.Status != StatusCancelled && a.DeletedAt == nil
}

// Conflicts reports whether other holds an overlapping interval for the same practitioner.
func (a *Appointment) Conflicts(other *Appointment) bool {
	if other.ID == a.ID || other.PractitionerID != a.PractitionerID {
		return false
	}
	return other.Blocks() && a.Interval().Overlaps(other.Interval())
}

// Clone returns a deep copy safe to hand across goroutines.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.ServiceIDs = append([]string(nil), a.ServiceIDs...)
	if a.InvoiceEligibleAt != nil {
		t := *a.InvoiceEligibleAt
		cp.InvoiceEligibleAt = &t
	}
	if a.DeletedAt != nil {
		t := *a.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

// CalendarDay truncates t to midnight in its own location.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
