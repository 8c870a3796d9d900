package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExternalClientComplete(t *testing.T) {
	assert.True(t, ExternalClient{FirstName: "Ana", LastName: "Lopez", Phone: "+1555"}.Complete())
	assert.False(t, ExternalClient{FirstName: "Ana", LastName: "Lopez"}.Complete())
	assert.False(t, ExternalClient{FirstName: " ", LastName: "Lopez", Phone: "+1555"}.Complete())
}

func TestIsExternalClient(t *testing.T) {
	a := scheduledFor("client-1", "prac-1")
	assert.False(t, a.IsExternalClient())
	id, ok := a.RegisteredClientID()
	assert.True(t, ok)
	assert.Equal(t, "client-1", id)

	a.Client = ExternalClient{FirstName: "A", LastName: "B", Phone: "1"}
	assert.True(t, a.IsExternalClient())
	_, ok = a.RegisteredClientID()
	assert.False(t, ok)
}

func TestConflicts(t *testing.T) {
	a := scheduledFor("client-1", "prac-1")
	b := scheduledFor("client-2", "prac-1")
	b.ID = "appt-2"

	assert.True(t, a.Conflicts(b))

	b.StartTime = a.EndTime
	b.EndTime = a.EndTime.Add(15 * time.Minute)
	assert.False(t, a.Conflicts(b), "touching intervals do not overlap")

	b.StartTime, b.EndTime = a.StartTime, a.EndTime
	b.Status = StatusCancelled
	assert.False(t, a.Conflicts(b), "cancelled bookings release the slot")

	b.Status = StatusScheduled
	b.PractitionerID = "prac-2"
	assert.False(t, a.Conflicts(b))

	assert.False(t, a.Conflicts(a), "an appointment never conflicts with itself")
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" Completed ")
	assert.True(t, ok)
	assert.Equal(t, StatusCompleted, s)
	_, ok = ParseStatus("no_show")
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	a := scheduledFor("client-1", "prac-1")
	c := a.Clone()
	c.ServiceIDs[0] = "changed"
	assert.Equal(t, "svc-1", a.ServiceIDs[0])
}
