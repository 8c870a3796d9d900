package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/medspa-practice/internal/appointment"
)

type fakeAppointments struct {
	mu    sync.Mutex
	appts map[string]*appointment.Appointment
}

func newFakeAppointments(appts ...*appointment.Appointment) *fakeAppointments {
	f := &fakeAppointments{appts: make(map[string]*appointment.Appointment)}
	for _, a := range appts {
		f.appts[a.ID] = a
	}
	return f
}

func (f *fakeAppointments) Get(_ context.Context, id string) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	return a.Clone(), nil
}

type dispatchFunc func(ctx context.Context, msg Message) error

func (f dispatchFunc) Dispatch(ctx context.Context, msg Message) error { return f(ctx, msg) }

type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.msgs)
}

type staticToggles map[string]bool

func (t staticToggles) ChannelEnabled(_ context.Context, ch string) (bool, error) {
	on, ok := t[ch]
	if !ok {
		return true, nil
	}
	return on, nil
}

type brokenToggles struct{}

func (brokenToggles) ChannelEnabled(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func walkInAppointment(id string) *appointment.Appointment {
	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return &appointment.Appointment{
		ID:             id,
		PractitionerID: "prac-1",
		Client:         appointment.ExternalClient{FirstName: "Jane", LastName: "Doe", Phone: "0821234567"},
		ServiceIDs:     []string{"svc-1"},
		TotalDuration:  30 * time.Minute,
		TotalPrice:     decimal.RequireFromString("80"),
		StartTime:      start,
		EndTime:        start.Add(30 * time.Minute),
		Status:         appointment.StatusScheduled,
	}
}
