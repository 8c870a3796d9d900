package appointment

import (
	"fmt"

	"github.com/wolfman30/medspa-practice/internal/identity"
)

// Action is something a caller asks to do to an existing appointment.
type Action string

const (
	ActionComplete   Action = "complete"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionDelete     Action = "delete"
)

// ActionFor maps a target status to the action that reaches it.
func ActionFor(target Status) (Action, error) {
	switch target {
	case StatusCompleted:
		return ActionComplete, nil
	case StatusCancelled:
		return ActionCancel, nil
	default:
		return "", fmt.Errorf("%w: cannot transition to %q", ErrInvalidTransition, target)
	}
}

// CanTransition encodes scheduled -> completed | cancelled. Both targets are terminal.
func CanTransition(from, to Status) bool {
	return from == StatusScheduled && (to == StatusCompleted || to == StatusCancelled)
}

// Authorize checks the caller may perform action on appt. It does not check state.
//
// Clients may cancel or reschedule only their own appointments. Practitioners may act
// only on appointments assigned to them. Elevated roles may act on anything; only
// they may soft-delete.
func Authorize(caller identity.Caller, appt *Appointment, action Action) error {
	if !caller.Valid() {
		return fmt.Errorf("%w: unauthenticated caller", ErrForbidden)
	}
	switch {
	case caller.Role.Elevated():
		return nil
	case caller.Role == identity.RolePractitioner:
		if action == ActionDelete {
			return fmt.Errorf("%w: practitioners cannot delete appointments", ErrForbidden)
		}
		if appt.PractitionerID != caller.ID {
			return fmt.Errorf("%w: appointment is assigned to another practitioner", ErrForbidden)
		}
		return nil
	case caller.Role == identity.RoleClient:
		if action != ActionCancel && action != ActionReschedule {
			return fmt.Errorf("%w: clients may only cancel or reschedule", ErrForbidden)
		}
		if id, ok := appt.RegisteredClientID(); !ok || id != caller.ID {
			return fmt.Errorf("%w: appointment belongs to another client", ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("%w: role %q", ErrForbidden, caller.Role)
	}
}

// Transition validates that caller may move appt to target. Permission is checked
// first so that a forbidden caller learns nothing about the appointment's state.
func Transition(caller identity.Caller, appt *Appointment, target Status) error {
	action, err := ActionFor(target)
	if err != nil {
		return err
	}
	if err := Authorize(caller, appt, action); err != nil {
		return err
	}
	if !CanTransition(appt.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, target)
	}
	return nil
}
