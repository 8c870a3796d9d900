package appointment

import (
	"fmt"
	"time"

	"github.com/wolfman30/medspa-practice/internal/identity"
)

// Scope restricts which appointments a read may return. An empty ClientID means all.
type Scope struct {
	ClientID string
}

// ScopeFor derives the visibility scope from the caller. Clients see only their own
// registered bookings; practitioners and above see everything.
func ScopeFor(caller identity.Caller) (Scope, error) {
	if !caller.Valid() {
		return Scope{}, fmt.Errorf("%w: unauthenticated caller", ErrForbidden)
	}
	if caller.Role.AtLeast(identity.RolePractitioner) {
		return Scope{}, nil
	}
	return Scope{ClientID: caller.ID}, nil
}

// Allows reports whether appt is inside the scope.
func (s Scope) Allows(appt *Appointment) bool {
	if appt == nil || appt.DeletedAt != nil {
		return false
	}
	if s.ClientID == "" {
		return true
	}
	id, ok := appt.RegisteredClientID()
	return ok && id == s.ClientID
}

// Query is a scoped read over appointments. Scope is always set by ScopeFor and
// never from request parameters.
type Query struct {
	Scope          Scope
	PractitionerID string
	From           time.Time
	To             time.Time
	Statuses       []Status
}

// Matches applies the whole query in memory.
func (q Query) Matches(appt *Appointment) bool {
	if !q.Scope.Allows(appt) {
		return false
	}
	if q.PractitionerID != "" && appt.PractitionerID != q.PractitionerID {
		return false
	}
	if !q.From.IsZero() && appt.EndTime.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !appt.StartTime.Before(q.To) {
		return false
	}
	if len(q.Statuses) > 0 {
		for _, s := range q.Statuses {
			if appt.Status == s {
				return true
			}
		}
		return false
	}
	return true
}
