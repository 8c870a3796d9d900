package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"

	"github.com/wolfman30/medspa-practice/internal/appointment"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

const reminderLockKey = "medspa:lock:reminder-dispatch"

// Locker obtains a distributed lease. *redislock.Client satisfies it.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Notifier is the slice of the orchestrator the worker drives.
type Notifier interface {
	Notify(ctx context.Context, appointmentID string, kind EventKind) (*Report, error)
}

// ReminderWorker sends due reminders. Only the instance holding the lock
// dispatches on a given tick.
type ReminderWorker struct {
	store        ReminderStore
	notifier     Notifier
	appointments AppointmentReader
	locker       Locker
	lockTTL      time.Duration
	batch        int
	logger       *logging.Logger
	now          func() time.Time
}

func NewReminderWorker(store ReminderStore, notifier Notifier, appointments AppointmentReader, locker Locker, logger *logging.Logger) *ReminderWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderWorker{
		store:        store,
		notifier:     notifier,
		appointments: appointments,
		locker:       locker,
		lockTTL:      time.Minute,
		batch:        100,
		logger:       logger.Component("reminder-worker"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ProcessDue dispatches every due reminder once. Returns how many were sent.
// The lease is refreshed before each reminder and each reminder is claimed
// in the store before dispatch, so a worker that takes over an expired lease
// never resends a reminder already in flight.
func (w *ReminderWorker) ProcessDue(ctx context.Context) (int, error) {
	var lock *redislock.Lock
	if w.locker != nil {
		var err error
		lock, err = w.locker.Obtain(ctx, reminderLockKey, w.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			w.logger.Debug("reminder dispatch held by another worker")
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("reminder worker: obtain lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				w.logger.Warn("release reminder lock failed", "error", err)
			}
		}()
	}

	due, err := w.store.ListDue(ctx, w.now(), w.batch)
	if err != nil {
		return 0, fmt.Errorf("reminder worker: list due: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}
	w.logger.Info("processing due reminders", "count", len(due))

	sent := 0
	for i := range due {
		if lock != nil {
			if err := lock.Refresh(ctx, w.lockTTL, nil); err != nil {
				w.logger.Warn("reminder lock lost, stopping batch", "remaining", len(due)-i, "error", err)
				break
			}
		}
		claimed, err := w.store.Claim(ctx, due[i].ID)
		if err != nil {
			w.logger.Error("claim reminder failed", "reminder_id", due[i].ID, "error", err)
			continue
		}
		if !claimed {
			w.logger.Debug("reminder claimed elsewhere", "reminder_id", due[i].ID)
			continue
		}
		ok, err := w.processOne(ctx, &due[i])
		if err != nil {
			w.logger.Error("reminder failed", "reminder_id", due[i].ID, "appointment_id", due[i].AppointmentID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

func (w *ReminderWorker) processOne(ctx context.Context, r *Reminder) (bool, error) {
	appt, err := w.appointments.Get(ctx, r.AppointmentID)
	if errors.Is(err, appointment.ErrNotFound) {
		_, err := w.store.SuppressPending(ctx, r.AppointmentID)
		return false, err
	}
	if err != nil {
		return false, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != appointment.StatusScheduled || appt.DeletedAt != nil {
		_, err := w.store.SuppressPending(ctx, r.AppointmentID)
		return false, err
	}

	report, err := w.notifier.Notify(ctx, r.AppointmentID, EventReminder)
	if err != nil {
		if markErr := w.store.MarkFailed(ctx, r.ID, err.Error()); markErr != nil {
			w.logger.Warn("mark reminder failed", "reminder_id", r.ID, "error", markErr)
		}
		return false, err
	}
	if allSkipped(report) {
		_, err := w.store.SuppressPending(ctx, r.AppointmentID)
		return false, err
	}
	if failed := report.Failed(); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, a := range failed {
			details = append(details, a.Detail)
		}
		detail := strings.Join(details, "; ")
		return false, errors.Join(fmt.Errorf("dispatch: %s", detail), w.store.MarkFailed(ctx, r.ID, detail))
	}
	if err := w.store.MarkSent(ctx, r.ID); err != nil {
		return false, err
	}
	return true, nil
}

func allSkipped(r *Report) bool {
	for _, a := range r.Attempts {
		if a.Attempted() {
			return false
		}
	}
	return true
}

// Run polls until ctx is cancelled.
func (w *ReminderWorker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := w.ProcessDue(ctx); err != nil {
			w.logger.Error("reminder tick failed", "error", err)
		} else if n > 0 {
			w.logger.Info("reminders sent", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
