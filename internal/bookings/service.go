package bookings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/medspa-practice/internal/appointment"
	"github.com/wolfman30/medspa-practice/internal/catalog"
	"github.com/wolfman30/medspa-practice/internal/identity"
	"github.com/wolfman30/medspa-practice/internal/inventory"
	"github.com/wolfman30/medspa-practice/internal/notify"
	"github.com/wolfman30/medspa-practice/internal/observability/metrics"
	"github.com/wolfman30/medspa-practice/internal/scheduling"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

var bookingsTracer = otel.Tracer("medspa.internal.bookings")

// Notifier fans a lifecycle event out to its notification channels.
type Notifier interface {
	Notify(ctx context.Context, appointmentID string, kind notify.EventKind) (*notify.Report, error)
}

// Ledger consumes and adjusts inventory.
type Ledger interface {
	Consume(ctx context.Context, serviceID, appointmentID, actor string) (*inventory.ConsumptionResult, error)
	Adjust(ctx context.Context, itemID string, delta int, reason inventory.Reason, actor string) (*inventory.Movement, *inventory.LowStockAlert, error)
	Movements(ctx context.Context, itemID string) ([]inventory.Movement, error)
	Reconcile(ctx context.Context, itemID string) (inventory.Reconciliation, error)
}

// Schedule supplies the working grid and reminder lead time.
type Schedule interface {
	TimeGrid(ctx context.Context) (scheduling.TimeGrid, error)
	ReminderLead(ctx context.Context) (time.Duration, error)
}

// LowStockAlerter is told about items at or below their threshold.
type LowStockAlerter interface {
	AlertLowStock(ctx context.Context, alerts []inventory.LowStockAlert) error
}

// AttemptReader returns the latest attempt per channel.
type AttemptReader interface {
	LatestAttempts(ctx context.Context, appointmentID string) ([]notify.Attempt, error)
}

// Config wires the coordinator's collaborators. Repo, Catalog and Schedule are required.
type Config struct {
	Repo      Repository
	Catalog   catalog.Repository
	Schedule  Schedule
	Ledger    Ledger
	Notifier  Notifier
	Reminders notify.ReminderStore
	Attempts  AttemptReader
	LowStock  LowStockAlerter
	Metrics   *metrics.BookingMetrics
	Logger    *logging.Logger
	Now       func() time.Time
}

// Service coordinates bookings: the appointment write is durable before any
// side effect runs, and side-effect failures come back as warnings.
type Service struct {
	repo      Repository
	catalog   catalog.Repository
	schedule  Schedule
	ledger    Ledger
	notifier  Notifier
	reminders notify.ReminderStore
	attempts  AttemptReader
	lowStock  LowStockAlerter
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewService constructs a bookings service.
func NewService(cfg Config) *Service {
	if cfg.Repo == nil {
		panic("bookings: repository required")
	}
	if cfg.Catalog == nil {
		panic("bookings: catalog required")
	}
	if cfg.Schedule == nil {
		panic("bookings: schedule required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      cfg.Repo,
		catalog:   cfg.Catalog,
		schedule:  cfg.Schedule,
		ledger:    cfg.Ledger,
		notifier:  cfg.Notifier,
		reminders: cfg.Reminders,
		attempts:  cfg.Attempts,
		lowStock:  cfg.LowStock,
		metrics:   cfg.Metrics,
		logger:    logger.Component("bookings"),
		now:       now,
	}
}

// CreateRequest is a booking request. External wins over ClientID when both are set.
type CreateRequest struct {
	PractitionerID string
	ClientID       string
	External       *appointment.ExternalClient
	ServiceIDs     []string
	StartTime      time.Time
	Notes          string
}

// Result is a successful mutation plus any non-fatal warnings.
type Result struct {
	Appointment *appointment.Appointment
	Warnings    []appointment.Warning
	Consumption []*inventory.ConsumptionResult
}

// GetAvailableSlots lists bookable start times for the practitioner on date.
// Starts already in the past are dropped. The list is advisory.
func (s *Service) GetAvailableSlots(ctx context.Context, practitionerID string, date time.Time, duration time.Duration) ([]time.Time, error) {
	if strings.TrimSpace(practitionerID) == "" {
		return nil, appointment.ErrNoPractitionerSelected
	}
	if duration <= 0 {
		return nil, scheduling.ErrInvalidDuration
	}
	grid, err := s.schedule.TimeGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: load working hours: %w", err)
	}
	window := grid.Day(date)
	busy, err := s.repo.Busy(ctx, practitionerID, window.Start, window.End, "")
	if err != nil {
		return nil, fmt.Errorf("bookings: load busy intervals: %w", err)
	}
	return grid.AvailableSlots(scheduling.SlotRequest{
		PractitionerID: practitionerID,
		Date:           date,
		Duration:       duration,
		Busy:           busy,
		NotBefore:      s.now(),
	})
}

func validateCreate(req CreateRequest) (appointment.Client, error) {
	if len(req.ServiceIDs) == 0 {
		return nil, appointment.ErrNoServicesSelected
	}
	if strings.TrimSpace(req.PractitionerID) == "" {
		return nil, appointment.ErrNoPractitionerSelected
	}
	if req.External != nil {
		ext := appointment.ExternalClient{
			FirstName: strings.TrimSpace(req.External.FirstName),
			LastName:  strings.TrimSpace(req.External.LastName),
			Phone:     strings.TrimSpace(req.External.Phone),
			Email:     strings.TrimSpace(req.External.Email),
		}
		if !ext.Complete() {
			return nil, appointment.ErrIncompleteExternalClient
		}
		return ext, nil
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, appointment.ErrNoClientSelected
	}
	return appointment.RegisteredClient{ID: strings.TrimSpace(req.ClientID)}, nil
}

// CreateBooking validates, persists and confirms a booking. Once called it is not
// abortable: caller cancellation does not interrupt it.
func (s *Service) CreateBooking(ctx context.Context, caller identity.Caller, req CreateRequest) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("medspa.practitioner_id", req.PractitionerID),
		attribute.Int("medspa.service_count", len(req.ServiceIDs)),
	)
	started := time.Now()

	res, err := s.createBooking(ctx, caller, req)
	s.metrics.ObserveCreate(outcome(err), time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("medspa.appointment_id", res.Appointment.ID))
	return res, nil
}

func (s *Service) createBooking(ctx context.Context, caller identity.Caller, req CreateRequest) (*Result, error) {
	client, err := validateCreate(req)
	if err != nil {
		return nil, err
	}
	if err := authorizeCreate(caller, client); err != nil {
		return nil, err
	}

	services, err := s.catalog.GetMany(ctx, req.ServiceIDs)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("bookings: load services: %w", err)
	}
	duration, price := catalog.Totals(services)

	grid, err := s.schedule.TimeGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: load working hours: %w", err)
	}
	start := req.StartTime.In(gridZone(grid))
	if err := s.checkWindow(ctx, grid, req.PractitionerID, start, duration, ""); err != nil {
		return nil, err
	}

	now := s.now()
	appt := &appointment.Appointment{
		ID:             uuid.NewString(),
		PractitionerID: strings.TrimSpace(req.PractitionerID),
		Client:         client,
		ServiceIDs:     append([]string(nil), req.ServiceIDs...),
		TotalDuration:  duration,
		TotalPrice:     price,
		Date:           appointment.CalendarDay(start),
		StartTime:      start,
		EndTime:        start.Add(duration),
		Status:         appointment.StatusScheduled,
		Notes:          strings.TrimSpace(req.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, appt); err != nil {
		if errors.Is(err, appointment.ErrSlotUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("bookings: insert appointment: %w", err)
	}
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"practitioner_id", appt.PractitionerID,
		"external_client", appt.IsExternalClient(),
		"start", appt.StartTime,
	)

	res := &Result{Appointment: appt}
	res.Warnings = append(res.Warnings, s.scheduleReminder(ctx, appt)...)
	res.Warnings = append(res.Warnings, s.notify(ctx, appt.ID, notify.EventConfirmation)...)
	return res, nil
}

func authorizeCreate(caller identity.Caller, client appointment.Client) error {
	if !caller.Valid() {
		return fmt.Errorf("%w: unauthenticated caller", appointment.ErrForbidden)
	}
	if caller.Role.AtLeast(identity.RolePractitioner) {
		return nil
	}
	rc, ok := client.(appointment.RegisteredClient)
	if !ok || rc.ID != caller.ID {
		return fmt.Errorf("%w: clients may only book for themselves", appointment.ErrForbidden)
	}
	return nil
}

// checkWindow rejects starts in the past, outside working hours, or over a known
// booking. The repository write remains the authoritative check.
func (s *Service) checkWindow(ctx context.Context, grid scheduling.TimeGrid, practitionerID string, start time.Time, duration time.Duration, excludeID string) error {
	if start.Before(s.now()) {
		return fmt.Errorf("%w: start %s is in the past", appointment.ErrSlotUnavailable, start.Format(time.RFC3339))
	}
	window := grid.Day(start)
	busy, err := s.repo.Busy(ctx, practitionerID, window.Start, window.End, excludeID)
	if err != nil {
		return fmt.Errorf("bookings: load busy intervals: %w", err)
	}
	if !grid.Fits(start, duration, busy) {
		return appointment.ErrSlotUnavailable
	}
	return nil
}

func (s *Service) scheduleReminder(ctx context.Context, appt *appointment.Appointment) []appointment.Warning {
	if s.reminders == nil {
		return nil
	}
	lead, err := s.schedule.ReminderLead(ctx)
	if err != nil {
		s.logger.Warn("reminder lead lookup failed", "appointment_id", appt.ID, "error", err)
		return []appointment.Warning{{Kind: appointment.WarningReminder, Channel: string(notify.ChannelSMSReminder), Detail: err.Error()}}
	}
	due := appt.StartTime.Add(-lead)
	if !due.After(s.now()) {
		return nil
	}
	if _, err := s.reminders.Schedule(ctx, appt.ID, due); err != nil {
		s.logger.Warn("schedule reminder failed", "appointment_id", appt.ID, "error", err)
		return []appointment.Warning{{Kind: appointment.WarningReminder, Channel: string(notify.ChannelSMSReminder), Detail: err.Error()}}
	}
	return nil
}

func (s *Service) suppressReminders(ctx context.Context, appointmentID string) []appointment.Warning {
	if s.reminders == nil {
		return nil
	}
	n, err := s.reminders.SuppressPending(ctx, appointmentID)
	if err != nil {
		s.logger.Warn("suppress reminders failed", "appointment_id", appointmentID, "error", err)
		return []appointment.Warning{{Kind: appointment.WarningReminder, Channel: string(notify.ChannelSMSReminder), Detail: err.Error()}}
	}
	if n > 0 {
		s.logger.Info("pending reminders suppressed", "appointment_id", appointmentID, "count", n)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, appointmentID string, kind notify.EventKind) []appointment.Warning {
	if s.notifier == nil {
		return nil
	}
	report, err := s.notifier.Notify(ctx, appointmentID, kind)
	if err != nil {
		s.logger.Error("notify failed", "appointment_id", appointmentID, "event", kind, "error", err)
		return []appointment.Warning{{Kind: appointment.WarningNotification, Detail: err.Error()}}
	}
	warnings := report.Warnings()
	for _, w := range warnings {
		s.logger.Warn("notification channel failed", "appointment_id", appointmentID, "event", kind, "channel", w.Channel, "detail", w.Detail)
	}
	return warnings
}

// TransitionStatus moves an appointment to completed or cancelled. Completion
// consumes inventory for every service on the appointment; a consumption failure
// is a warning, not an error.
func (s *Service) TransitionStatus(ctx context.Context, caller identity.Caller, appointmentID string, target appointment.Status) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := bookingsTracer.Start(ctx, "bookings.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("medspa.appointment_id", appointmentID),
		attribute.String("medspa.target_status", string(target)),
	)

	res, err := s.transition(ctx, caller, appointmentID, target)
	s.metrics.ObserveTransition(string(target), outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (s *Service) transition(ctx context.Context, caller identity.Caller, appointmentID string, target appointment.Status) (*Result, error) {
	current, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := appointment.Transition(caller, current, target); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateStatus(ctx, appointmentID, current.Status, target)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment status changed", "appointment_id", appointmentID, "from", current.Status, "to", target, "actor", caller.ID)

	res := &Result{Appointment: updated}
	switch target {
	case appointment.StatusCompleted:
		consumed, warnings := s.consumeAll(ctx, updated, caller.ID)
		res.Consumption = consumed
		res.Warnings = append(res.Warnings, warnings...)
		res.Warnings = append(res.Warnings, s.notify(ctx, appointmentID, notify.EventCompletion)...)
	case appointment.StatusCancelled:
		res.Warnings = append(res.Warnings, s.suppressReminders(ctx, appointmentID)...)
		res.Warnings = append(res.Warnings, s.notify(ctx, appointmentID, notify.EventCancellation)...)
	}
	return res, nil
}

// consumeAll runs one consumption per service occurrence. Each is its own
// transaction, so one short service does not undo another.
func (s *Service) consumeAll(ctx context.Context, appt *appointment.Appointment, actor string) ([]*inventory.ConsumptionResult, []appointment.Warning) {
	if s.ledger == nil {
		return nil, nil
	}
	var results []*inventory.ConsumptionResult
	var warnings []appointment.Warning
	var low []inventory.LowStockAlert
	for _, serviceID := range appt.ServiceIDs {
		result, err := s.ledger.Consume(ctx, serviceID, appt.ID, actor)
		if err != nil {
			warnings = append(warnings, consumptionWarning(serviceID, err))
			s.logger.Warn("inventory consumption failed", "appointment_id", appt.ID, "service_id", serviceID, "error", err)
			continue
		}
		results = append(results, result)
		low = append(low, result.LowStock...)
	}
	warnings = append(warnings, s.alertLowStock(ctx, low)...)
	return results, warnings
}

func consumptionWarning(serviceID string, err error) appointment.Warning {
	var short *inventory.InsufficientStockError
	if errors.As(err, &short) {
		return appointment.Warning{Kind: appointment.WarningInsufficientStock, ServiceID: serviceID, Detail: short.Error()}
	}
	return appointment.Warning{Kind: appointment.WarningInventory, ServiceID: serviceID, Detail: err.Error()}
}

func (s *Service) alertLowStock(ctx context.Context, alerts []inventory.LowStockAlert) []appointment.Warning {
	if len(alerts) == 0 {
		return nil
	}
	var warnings []appointment.Warning
	for _, a := range alerts {
		warnings = append(warnings, appointment.Warning{
			Kind:   appointment.WarningLowStock,
			ItemID: a.ItemID,
			Detail: fmt.Sprintf("%d left, minimum %d", a.Stock, a.Threshold),
		})
	}
	if s.lowStock != nil {
		if err := s.lowStock.AlertLowStock(ctx, alerts); err != nil {
			s.logger.Warn("low stock alert failed", "items", len(alerts), "error", err)
		}
	}
	return warnings
}

// Reschedule moves a scheduled appointment to newStart, keeping its duration.
func (s *Service) Reschedule(ctx context.Context, caller identity.Caller, appointmentID string, newStart time.Time) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := bookingsTracer.Start(ctx, "bookings.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("medspa.appointment_id", appointmentID))

	res, err := s.reschedule(ctx, caller, appointmentID, newStart)
	s.metrics.ObserveTransition("rescheduled", outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (s *Service) reschedule(ctx context.Context, caller identity.Caller, appointmentID string, newStart time.Time) (*Result, error) {
	current, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := appointment.Authorize(caller, current, appointment.ActionReschedule); err != nil {
		return nil, err
	}
	if current.Status != appointment.StatusScheduled {
		return nil, fmt.Errorf("%w: cannot reschedule %s appointment", appointment.ErrInvalidTransition, current.Status)
	}

	grid, err := s.schedule.TimeGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: load working hours: %w", err)
	}
	start := newStart.In(gridZone(grid))
	duration := current.EndTime.Sub(current.StartTime)
	if err := s.checkWindow(ctx, grid, current.PractitionerID, start, duration, current.ID); err != nil {
		return nil, err
	}
	moved, err := s.repo.Reschedule(ctx, appointmentID, appointment.CalendarDay(start), start, start.Add(duration))
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment rescheduled", "appointment_id", appointmentID, "from", current.StartTime, "to", moved.StartTime, "actor", caller.ID)

	res := &Result{Appointment: moved}
	res.Warnings = append(res.Warnings, s.suppressReminders(ctx, appointmentID)...)
	res.Warnings = append(res.Warnings, s.scheduleReminder(ctx, moved)...)
	res.Warnings = append(res.Warnings, s.notify(ctx, appointmentID, notify.EventReschedule)...)
	return res, nil
}

// SoftDelete hides an appointment from every read and frees its slot.
func (s *Service) SoftDelete(ctx context.Context, caller identity.Caller, appointmentID string) error {
	current, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	if err := appointment.Authorize(caller, current, appointment.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, appointmentID, s.now()); err != nil {
		return err
	}
	s.suppressReminders(ctx, appointmentID)
	s.logger.Info("appointment deleted", "appointment_id", appointmentID, "actor", caller.ID)
	return nil
}

// ListFilter narrows a list beyond the caller's visibility scope.
type ListFilter struct {
	PractitionerID string
	From           time.Time
	To             time.Time
	Statuses       []appointment.Status
}

// ListAppointments returns the appointments the caller may see, ordered by start.
func (s *Service) ListAppointments(ctx context.Context, caller identity.Caller, f ListFilter) ([]*appointment.Appointment, error) {
	scope, err := appointment.ScopeFor(caller)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, appointment.Query{
		Scope:          scope,
		PractitionerID: f.PractitionerID,
		From:           f.From,
		To:             f.To,
		Statuses:       f.Statuses,
	})
}

// GetAppointment returns one appointment. Appointments outside the caller's
// scope are reported as not found.
func (s *Service) GetAppointment(ctx context.Context, caller identity.Caller, appointmentID string) (*appointment.Appointment, error) {
	scope, err := appointment.ScopeFor(caller)
	if err != nil {
		return nil, err
	}
	appt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(appt) {
		return nil, fmt.Errorf("%w: %s", appointment.ErrNotFound, appointmentID)
	}
	return appt, nil
}

// NotificationHistory returns the latest attempt per channel for a visible appointment.
func (s *Service) NotificationHistory(ctx context.Context, caller identity.Caller, appointmentID string) ([]notify.Attempt, error) {
	if _, err := s.GetAppointment(ctx, caller, appointmentID); err != nil {
		return nil, err
	}
	if s.attempts == nil {
		return nil, nil
	}
	attempts, err := s.attempts.LatestAttempts(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("bookings: notification history: %w", err)
	}
	slices.SortFunc(attempts, func(a, b notify.Attempt) int { return strings.Compare(string(a.Channel), string(b.Channel)) })
	return attempts, nil
}

func requireStaff(caller identity.Caller) error {
	if !caller.Valid() || !caller.Role.AtLeast(identity.RolePractitioner) {
		return fmt.Errorf("%w: staff role required", appointment.ErrForbidden)
	}
	return nil
}

func (s *Service) requireLedger() error {
	if s.ledger == nil {
		return errors.New("bookings: inventory ledger not configured")
	}
	return nil
}

// ConsumeForService consumes inventory for one service outside a status change.
// The caller must be allowed to complete the appointment and the service must
// be booked on it.
func (s *Service) ConsumeForService(ctx context.Context, caller identity.Caller, serviceID, appointmentID string) (*inventory.ConsumptionResult, []appointment.Warning, error) {
	if err := requireStaff(caller); err != nil {
		return nil, nil, err
	}
	if err := s.requireLedger(); err != nil {
		return nil, nil, err
	}
	appt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, nil, err
	}
	if err := appointment.Authorize(caller, appt, appointment.ActionComplete); err != nil {
		return nil, nil, err
	}
	if !slices.Contains(appt.ServiceIDs, serviceID) {
		return nil, nil, fmt.Errorf("%w: %s is not booked on appointment %s", catalog.ErrServiceNotFound, serviceID, appointmentID)
	}
	result, err := s.ledger.Consume(context.WithoutCancel(ctx), serviceID, appointmentID, caller.ID)
	if err != nil {
		return nil, nil, err
	}
	return result, s.alertLowStock(ctx, result.LowStock), nil
}

// AdjustStock applies a manual stock change and records its movement.
func (s *Service) AdjustStock(ctx context.Context, caller identity.Caller, itemID string, delta int, reason inventory.Reason) (*inventory.Movement, []appointment.Warning, error) {
	if err := requireStaff(caller); err != nil {
		return nil, nil, err
	}
	if err := s.requireLedger(); err != nil {
		return nil, nil, err
	}
	mv, alert, err := s.ledger.Adjust(ctx, itemID, delta, reason, caller.ID)
	if err != nil {
		return nil, nil, err
	}
	var warnings []appointment.Warning
	if alert != nil {
		warnings = s.alertLowStock(ctx, []inventory.LowStockAlert{*alert})
	}
	return mv, warnings, nil
}

// Movements returns an item's stock history.
func (s *Service) Movements(ctx context.Context, caller identity.Caller, itemID string) ([]inventory.Movement, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	return s.ledger.Movements(ctx, itemID)
}

// Reconcile compares an item's stock with the sum of its movements.
func (s *Service) Reconcile(ctx context.Context, caller identity.Caller, itemID string) (inventory.Reconciliation, error) {
	if err := requireStaff(caller); err != nil {
		return inventory.Reconciliation{}, err
	}
	if err := s.requireLedger(); err != nil {
		return inventory.Reconciliation{}, err
	}
	return s.ledger.Reconcile(ctx, itemID)
}

func gridZone(g scheduling.TimeGrid) *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, appointment.ErrSlotUnavailable):
		return "conflict"
	case errors.Is(err, appointment.ErrForbidden):
		return "forbidden"
	case appointment.IsValidation(err), errors.Is(err, scheduling.ErrInvalidDuration):
		return "invalid"
	case errors.Is(err, appointment.ErrNotFound):
		return "not_found"
	case errors.Is(err, appointment.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "error"
	}
}
