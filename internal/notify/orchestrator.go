package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/medspa-practice/internal/appointment"
	"github.com/wolfman30/medspa-practice/internal/observability/metrics"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

// AppointmentReader loads the appointment a notification is about.
type AppointmentReader interface {
	Get(ctx context.Context, id string) (*appointment.Appointment, error)
}

// ContactResolver looks up contact details for a registered client.
type ContactResolver interface {
	Contact(ctx context.Context, clientID string) (Contact, error)
}

// ChannelToggles reports whether a channel is enabled by configuration.
type ChannelToggles interface {
	ChannelEnabled(ctx context.Context, channel string) (bool, error)
}

// Dispatcher delivers one channel's message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// AttemptRecorder persists attempts.
type AttemptRecorder interface {
	Record(ctx context.Context, a Attempt) error
}

// OrchestratorConfig wires the orchestrator's collaborators.
type OrchestratorConfig struct {
	Appointments   AppointmentReader
	Contacts       ContactResolver
	Toggles        ChannelToggles
	Attempts       AttemptRecorder
	Dispatchers    map[Channel]Dispatcher
	ChannelTimeout time.Duration
	Metrics        *metrics.NotificationMetrics
	Logger         *logging.Logger
}

// Orchestrator fans a lifecycle event out to its channels. Channels run
// concurrently with their own timeout; a failing channel never affects another.
type Orchestrator struct {
	appointments AppointmentReader
	contacts     ContactResolver
	toggles      ChannelToggles
	attempts     AttemptRecorder
	dispatchers  map[Channel]Dispatcher
	timeout      time.Duration
	metrics      *metrics.NotificationMetrics
	logger       *logging.Logger
	now          func() time.Time
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Appointments == nil {
		panic("notify: appointment reader required")
	}
	if cfg.Attempts == nil {
		panic("notify: attempt recorder required")
	}
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	dispatchers := make(map[Channel]Dispatcher, len(cfg.Dispatchers))
	for ch, d := range cfg.Dispatchers {
		if d != nil {
			dispatchers[ch] = d
		}
	}
	return &Orchestrator{
		appointments: cfg.Appointments,
		contacts:     cfg.Contacts,
		toggles:      cfg.Toggles,
		attempts:     cfg.Attempts,
		dispatchers:  dispatchers,
		timeout:      cfg.ChannelTimeout,
		metrics:      cfg.Metrics,
		logger:       logger.Component("notify"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Notify delivers every channel mapped from kind and records one attempt per
// channel. Channel failures are reported in the Report, not as an error; an
// error means nothing could be attempted. Calling Notify again for the same
// event appends new attempts.
func (o *Orchestrator) Notify(ctx context.Context, appointmentID string, kind EventKind) (*Report, error) {
	channels, err := ChannelsFor(kind)
	if err != nil {
		return nil, err
	}
	appt, err := o.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("notify: load appointment: %w", err)
	}

	contact, contactErr := o.resolveContact(ctx, appt)
	if contactErr != nil {
		o.logger.Warn("contact lookup failed", "appointment_id", appointmentID, "error", contactErr)
	}

	report := &Report{AppointmentID: appointmentID, Event: kind, Attempts: make([]Attempt, len(channels))}
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := Message{Event: kind, Channel: ch, Appointment: appt, Contact: contact}
			report.Attempts[i] = o.deliver(ctx, msg, contactErr)
		}()
	}
	wg.Wait()

	for _, a := range report.Attempts {
		if err := o.attempts.Record(context.WithoutCancel(ctx), a); err != nil {
			o.logger.Error("record notification attempt failed", "appointment_id", appointmentID, "channel", a.Channel, "error", err)
		}
	}
	return report, nil
}

func (o *Orchestrator) deliver(ctx context.Context, msg Message, contactErr error) (attempt Attempt) {
	attempt = Attempt{
		ID:            uuid.NewString(),
		AppointmentID: msg.Appointment.ID,
		Event:         msg.Event,
		Channel:       msg.Channel,
		AttemptedAt:   o.now(),
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			attempt.Status = AttemptFailed
			attempt.Detail = fmt.Sprintf("dispatcher panic: %v", r)
		}
		o.metrics.ObserveAttempt(string(attempt.Channel), string(attempt.Status), time.Since(start).Seconds())
		if attempt.Status == AttemptFailed {
			o.logger.Warn("notification channel failed",
				"appointment_id", attempt.AppointmentID, "channel", attempt.Channel, "event", attempt.Event, "error", attempt.Detail)
		}
	}()

	if enabled, reason := o.enabled(ctx, msg.Channel); !enabled {
		attempt.Status = AttemptSkipped
		attempt.Detail = reason
		return attempt
	}
	dispatcher, ok := o.dispatchers[msg.Channel]
	if !ok {
		attempt.Status = AttemptSkipped
		attempt.Detail = "channel not configured"
		return attempt
	}
	if contactErr != nil && isClientFacing(msg.Channel) {
		attempt.Status = AttemptFailed
		attempt.Detail = contactErr.Error()
		return attempt
	}

	chCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := o.dispatch(chCtx, dispatcher, msg); err != nil {
		attempt.Status = AttemptFailed
		attempt.Detail = err.Error()
		return attempt
	}
	attempt.Status = AttemptSent
	return attempt
}

// dispatch returns when the dispatcher does or when ctx ends, whichever is
// first. A dispatcher that ignores ctx is abandoned, not waited on.
func (o *Orchestrator) dispatch(ctx context.Context, d Dispatcher, msg Message) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("dispatcher panic: %v", r)
			}
		}()
		done <- d.Dispatch(ctx, msg)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("channel timed out after %s: %w", o.timeout, ctx.Err())
	}
}

func (o *Orchestrator) enabled(ctx context.Context, ch Channel) (bool, string) {
	if o.toggles == nil {
		return true, ""
	}
	on, err := o.toggles.ChannelEnabled(ctx, string(ch))
	if err != nil {
		o.logger.Warn("channel toggle lookup failed, using enabled", "channel", ch, "error", err)
		return true, ""
	}
	if !on {
		return false, "disabled by configuration"
	}
	return true, ""
}

func (o *Orchestrator) resolveContact(ctx context.Context, appt *appointment.Appointment) (Contact, error) {
	switch c := appt.Client.(type) {
	case appointment.ExternalClient:
		return Contact{Name: c.FullName(), Phone: c.Phone, Email: c.Email}, nil
	case appointment.RegisteredClient:
		if o.contacts == nil {
			return Contact{}, fmt.Errorf("notify: no contact resolver for client %s", c.ID)
		}
		return o.contacts.Contact(ctx, c.ID)
	default:
		return Contact{}, fmt.Errorf("notify: appointment %s has no client", appt.ID)
	}
}

func isClientFacing(ch Channel) bool {
	switch ch {
	case ChannelSMSConfirmation, ChannelSMSReschedule, ChannelSMSCancellation, ChannelSMSReminder:
		return true
	default:
		return false
	}
}
