package notify

import (
	"fmt"
	"time"

	"github.com/wolfman30/medspa-practice/internal/appointment"
)

// EventKind is a lifecycle event that produces notifications.
type EventKind string

const (
	EventConfirmation EventKind = "confirmation"
	EventCancellation EventKind = "cancellation"
	EventReschedule   EventKind = "reschedule"
	EventCompletion   EventKind = "completion"
	EventReminder     EventKind = "reminder"
)

// Channel is one independent delivery path.
type Channel string

const (
	ChannelSMSConfirmation Channel = "sms_confirmation"
	ChannelSMSReschedule   Channel = "sms_reschedule"
	ChannelSMSCancellation Channel = "sms_cancellation"
	ChannelSMSReminder     Channel = "sms_reminder"
	ChannelCalendarSync    Channel = "calendar_sync"
	ChannelInvoiceEmail    Channel = "invoice_email"
)

var eventChannels = map[EventKind][]Channel{
	EventConfirmation: {ChannelSMSConfirmation, ChannelCalendarSync},
	EventCancellation: {ChannelSMSCancellation, ChannelCalendarSync},
	EventReschedule:   {ChannelSMSReschedule, ChannelCalendarSync},
	EventCompletion:   {ChannelInvoiceEmail},
	EventReminder:     {ChannelSMSReminder},
}

// ChannelsFor returns the channel set an event fans out to.
func ChannelsFor(kind EventKind) ([]Channel, error) {
	chs, ok := eventChannels[kind]
	if !ok {
		return nil, fmt.Errorf("notify: unknown event kind %q", kind)
	}
	return append([]Channel(nil), chs...), nil
}

// AttemptStatus is the outcome of one channel call.
type AttemptStatus string

const (
	AttemptSent    AttemptStatus = "sent"
	AttemptFailed  AttemptStatus = "failed"
	AttemptSkipped AttemptStatus = "skipped"
)

// Attempt is one recorded delivery attempt. Attempts are append-only; the newest
// per (appointment, channel) is authoritative.
type Attempt struct {
	ID            string        `json:"id"`
	AppointmentID string        `json:"appointment_id"`
	Event         EventKind     `json:"event"`
	Channel       Channel       `json:"channel"`
	Status        AttemptStatus `json:"status"`
	Detail        string        `json:"detail,omitempty"`
	AttemptedAt   time.Time     `json:"attempted_at"`
}

// Attempted reports whether the channel was actually called.
func (a Attempt) Attempted() bool { return a.Status != AttemptSkipped }

// Succeeded reports whether the channel call returned success.
func (a Attempt) Succeeded() bool { return a.Status == AttemptSent }

// Report aggregates one Notify call.
type Report struct {
	AppointmentID string
	Event         EventKind
	Attempts      []Attempt
}

// Failed returns the attempts whose channel call failed.
func (r *Report) Failed() []Attempt {
	if r == nil {
		return nil
	}
	var out []Attempt
	for _, a := range r.Attempts {
		if a.Status == AttemptFailed {
			out = append(out, a)
		}
	}
	return out
}

// Warnings converts failed attempts into caller-facing warnings.
func (r *Report) Warnings() []appointment.Warning {
	var out []appointment.Warning
	for _, a := range r.Failed() {
		out = append(out, appointment.Warning{
			Kind:    appointment.WarningNotification,
			Channel: string(a.Channel),
			Detail:  a.Detail,
		})
	}
	return out
}

// Contact is where a client can be reached.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Message is what a dispatcher receives for one channel.
type Message struct {
	Event       EventKind
	Channel     Channel
	Appointment *appointment.Appointment
	Contact     Contact
}
