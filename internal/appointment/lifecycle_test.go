package appointment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-practice/internal/identity"
)

func scheduledFor(clientID, practitionerID string) *Appointment {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &Appointment{
		ID:             "appt-1",
		PractitionerID: practitionerID,
		Client:         RegisteredClient{ID: clientID},
		ServiceIDs:     []string{"svc-1"},
		TotalDuration:  30 * time.Minute,
		StartTime:      start,
		EndTime:        start.Add(30 * time.Minute),
		Status:         StatusScheduled,
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusScheduled, StatusCompleted, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusScheduled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusScheduled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionPermissions(t *testing.T) {
	client := identity.Caller{ID: "client-1", Role: identity.RoleClient}
	otherClient := identity.Caller{ID: "client-2", Role: identity.RoleClient}
	practitioner := identity.Caller{ID: "prac-1", Role: identity.RolePractitioner}
	otherPractitioner := identity.Caller{ID: "prac-2", Role: identity.RolePractitioner}
	admin := identity.Caller{ID: "admin-1", Role: identity.RoleAdmin}

	tests := []struct {
		name    string
		caller  identity.Caller
		target  Status
		wantErr error
	}{
		{"client cancels own", client, StatusCancelled, nil},
		{"client cannot complete", client, StatusCompleted, ErrForbidden},
		{"client cannot cancel others", otherClient, StatusCancelled, ErrForbidden},
		{"practitioner completes own", practitioner, StatusCompleted, nil},
		{"practitioner cancels own", practitioner, StatusCancelled, nil},
		{"practitioner cannot touch others", otherPractitioner, StatusCompleted, ErrForbidden},
		{"admin completes any", admin, StatusCompleted, nil},
		{"anonymous rejected", identity.Caller{}, StatusCancelled, ErrForbidden},
		{"scheduled is not a target", admin, StatusScheduled, ErrInvalidTransition},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			appt := scheduledFor("client-1", "prac-1")
			err := Transition(tc.caller, appt, tc.target)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestTransitionFromTerminalState(t *testing.T) {
	admin := identity.Caller{ID: "admin-1", Role: identity.RoleAdmin}
	appt := scheduledFor("client-1", "prac-1")
	appt.Status = StatusCompleted

	err := Transition(admin, appt, StatusCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionChecksPermissionBeforeState(t *testing.T) {
	appt := scheduledFor("client-1", "prac-1")
	appt.Status = StatusCancelled

	err := Transition(identity.Caller{ID: "client-2", Role: identity.RoleClient}, appt, StatusCancelled)
	require.ErrorIs(t, err, ErrForbidden)
	assert.False(t, errors.Is(err, ErrInvalidTransition))
}

func TestAuthorizeDeleteRequiresElevatedRole(t *testing.T) {
	appt := scheduledFor("client-1", "prac-1")

	require.ErrorIs(t, Authorize(identity.Caller{ID: "prac-1", Role: identity.RolePractitioner}, appt, ActionDelete), ErrForbidden)
	require.ErrorIs(t, Authorize(identity.Caller{ID: "client-1", Role: identity.RoleClient}, appt, ActionDelete), ErrForbidden)
	require.NoError(t, Authorize(identity.Caller{ID: "root", Role: identity.RoleSuperAdmin}, appt, ActionDelete))
}

func TestExternalClientCannotBeActedOnByClientRole(t *testing.T) {
	appt := scheduledFor("", "prac-1")
	appt.Client = ExternalClient{FirstName: "Ana", LastName: "Lopez", Phone: "+15550001111"}

	err := Authorize(identity.Caller{ID: "client-1", Role: identity.RoleClient}, appt, ActionCancel)
	require.ErrorIs(t, err, ErrForbidden)
}
