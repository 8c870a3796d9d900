package bookings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/medspa-practice/internal/appointment"
	"github.com/wolfman30/medspa-practice/internal/catalog"
	"github.com/wolfman30/medspa-practice/internal/identity"
	"github.com/wolfman30/medspa-practice/internal/inventory"
	"github.com/wolfman30/medspa-practice/internal/notify"
	"github.com/wolfman30/medspa-practice/internal/scheduling"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

const dateLayout = "2006-01-02"

// Handler exposes the booking service over HTTP. Callers are resolved from the
// request context by the auth middleware.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a bookings HTTP handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("bookings: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the /v1 routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/practitioners/{practitionerID}/slots", h.GetSlots)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.CreateAppointment)
		r.Get("/", h.ListAppointments)
		r.Get("/{id}", h.GetAppointment)
		r.Delete("/{id}", h.DeleteAppointment)
		r.Post("/{id}/status", h.TransitionStatus)
		r.Post("/{id}/reschedule", h.Reschedule)
		r.Get("/{id}/notifications", h.Notifications)
	})

	r.Post("/services/{serviceID}/consume", h.ConsumeService)
	r.Post("/inventory/{itemID}/adjustments", h.AdjustStock)
	r.Get("/inventory/{itemID}/movements", h.Movements)
	return r
}

type externalClientJSON struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

// AppointmentJSON is the wire form of an appointment.
type AppointmentJSON struct {
	ID                string              `json:"id"`
	PractitionerID    string              `json:"practitioner_id"`
	ClientID          string              `json:"client_id,omitempty"`
	IsExternalClient  bool                `json:"is_external_client"`
	ExternalClient    *externalClientJSON `json:"external_client,omitempty"`
	ServiceIDs        []string            `json:"service_ids"`
	DurationMinutes   int                 `json:"duration_minutes"`
	TotalPrice        decimal.Decimal     `json:"total_price"`
	Date              string              `json:"appointment_date"`
	StartTime         time.Time           `json:"start_time"`
	EndTime           time.Time           `json:"end_time"`
	Status            appointment.Status  `json:"status"`
	Notes             string              `json:"notes,omitempty"`
	InvoiceEligibleAt *time.Time          `json:"invoice_eligible_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toJSON(a *appointment.Appointment) AppointmentJSON {
	out := AppointmentJSON{
		ID:                a.ID,
		PractitionerID:    a.PractitionerID,
		ServiceIDs:        a.ServiceIDs,
		DurationMinutes:   int(a.TotalDuration / time.Minute),
		TotalPrice:        a.TotalPrice,
		Date:              a.Date.Format(dateLayout),
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		Status:            a.Status,
		Notes:             a.Notes,
		InvoiceEligibleAt: a.InvoiceEligibleAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	switch c := a.Client.(type) {
	case appointment.RegisteredClient:
		out.ClientID = c.ID
	case appointment.ExternalClient:
		out.IsExternalClient = true
		out.ExternalClient = &externalClientJSON{FirstName: c.FirstName, LastName: c.LastName, Phone: c.Phone, Email: c.Email}
	}
	return out
}

type resultJSON struct {
	Appointment AppointmentJSON       `json:"appointment"`
	Warnings    []appointment.Warning `json:"warnings,omitempty"`
}

func toResultJSON(res *Result) resultJSON {
	return resultJSON{Appointment: toJSON(res.Appointment), Warnings: res.Warnings}
}

// GetSlots lists open start times.
// GET /v1/practitioners/{practitionerID}/slots?date=YYYY-MM-DD&duration=30
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r); !ok {
		return
	}
	practitionerID := chi.URLParam(r, "practitionerID")
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	minutes, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "duration must be whole minutes")
		return
	}

	grid, err := h.svc.schedule.TimeGrid(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, gridZone(grid))
	slots, err := h.svc.GetAvailableSlots(r.Context(), practitionerID, day, time.Duration(minutes)*time.Minute)
	if err != nil {
		h.fail(w, err)
		return
	}
	if slots == nil {
		slots = []time.Time{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"practitioner_id": practitionerID,
		"date":            date.Format(dateLayout),
		"slots":           slots,
	})
}

// CreateAppointmentRequest is the body of POST /v1/appointments.
type CreateAppointmentRequest struct {
	PractitionerID string              `json:"practitioner_id"`
	ClientID       string              `json:"client_id,omitempty"`
	ExternalClient *externalClientJSON `json:"external_client,omitempty"`
	ServiceIDs     []string            `json:"service_ids"`
	StartTime      time.Time           `json:"start_time"`
	Notes          string              `json:"notes,omitempty"`
}

// CreateAppointment books an appointment.
// POST /v1/appointments
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var body CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req := CreateRequest{
		PractitionerID: body.PractitionerID,
		ClientID:       body.ClientID,
		ServiceIDs:     body.ServiceIDs,
		StartTime:      body.StartTime,
		Notes:          body.Notes,
	}
	if ec := body.ExternalClient; ec != nil {
		req.External = &appointment.ExternalClient{FirstName: ec.FirstName, LastName: ec.LastName, Phone: ec.Phone, Email: ec.Email}
	}

	res, err := h.svc.CreateBooking(r.Context(), caller, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultJSON(res))
}

// ListAppointments lists visible appointments.
// GET /v1/appointments?from=&to=&practitioner_id=&status=
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var f ListFilter
	f.PractitionerID = q.Get("practitioner_id")
	from, to := q.Get("from"), q.Get("to")
	loc := time.UTC
	if from != "" || to != "" {
		grid, err := h.svc.schedule.TimeGrid(r.Context())
		if err != nil {
			h.fail(w, err)
			return
		}
		loc = gridZone(grid)
	}
	var err error
	if f.From, err = parseBound(from, loc, false); err != nil {
		writeError(w, http.StatusBadRequest, "from must be RFC3339 or YYYY-MM-DD")
		return
	}
	if f.To, err = parseBound(to, loc, true); err != nil {
		writeError(w, http.StatusBadRequest, "to must be RFC3339 or YYYY-MM-DD")
		return
	}
	for _, raw := range q["status"] {
		st, ok := appointment.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		f.Statuses = append(f.Statuses, st)
	}

	appts, err := h.svc.ListAppointments(r.Context(), caller, f)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]AppointmentJSON, 0, len(appts))
	for _, a := range appts {
		out = append(out, toJSON(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

// parseBound reads an RFC3339 instant or a practice-local date. A date-only
// upper bound includes the whole day.
func parseBound(raw string, loc *time.Location, upper bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}

// GetAppointment returns one appointment.
// GET /v1/appointments/{id}
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.GetAppointment(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(appt))
}

type statusRequest struct {
	Status string `json:"status"`
}

// TransitionStatus completes or cancels an appointment.
// POST /v1/appointments/{id}/status
func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var body statusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	target, valid := appointment.ParseStatus(body.Status)
	if !valid {
		writeError(w, http.StatusBadRequest, "unknown status "+body.Status)
		return
	}
	res, err := h.svc.TransitionStatus(r.Context(), caller, chi.URLParam(r, "id"), target)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultJSON(res))
}

type rescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
}

// Reschedule moves an appointment.
// POST /v1/appointments/{id}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var body rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.StartTime.IsZero() {
		writeError(w, http.StatusBadRequest, "start_time required")
		return
	}
	res, err := h.svc.Reschedule(r.Context(), caller, chi.URLParam(r, "id"), body.StartTime)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultJSON(res))
}

// DeleteAppointment soft-deletes an appointment.
// DELETE /v1/appointments/{id}
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.SoftDelete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notifications returns the latest attempt per channel.
// GET /v1/appointments/{id}/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	attempts, err := h.svc.NotificationHistory(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if attempts == nil {
		attempts = []notify.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

type consumeRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type consumptionJSON struct {
	ServiceID     string                    `json:"service_id"`
	AppointmentID string                    `json:"appointment_id,omitempty"`
	Movements     []inventory.Movement      `json:"movements"`
	LowStock      []inventory.LowStockAlert `json:"low_stock,omitempty"`
	Warnings      []appointment.Warning     `json:"warnings,omitempty"`
}

// ConsumeService consumes inventory for one performance of a service.
// POST /v1/services/{serviceID}/consume
func (h *Handler) ConsumeService(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var body consumeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	result, warnings, err := h.svc.ConsumeForService(r.Context(), caller, chi.URLParam(r, "serviceID"), body.AppointmentID)
	if err != nil {
		var short *inventory.InsufficientStockError
		if errors.As(err, &short) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": short.Error(), "shortages": short.Shortages})
			return
		}
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, consumptionJSON{
		ServiceID:     result.ServiceID,
		AppointmentID: result.AppointmentID,
		Movements:     result.Movements,
		LowStock:      result.LowStock,
		Warnings:      warnings,
	})
}

type adjustmentRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// AdjustStock restocks or writes off an item.
// POST /v1/inventory/{itemID}/adjustments
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var body adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reason, valid := inventory.ParseReason(body.Reason)
	if !valid {
		writeError(w, http.StatusBadRequest, "reason must be restock, write_off or correction")
		return
	}
	mv, warnings, err := h.svc.AdjustStock(r.Context(), caller, chi.URLParam(r, "itemID"), body.Delta, reason)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"movement": mv, "warnings": warnings})
}

// Movements lists an item's stock history with its reconciliation.
// GET /v1/inventory/{itemID}/movements
func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemID")
	movements, err := h.svc.Movements(r.Context(), caller, itemID)
	if err != nil {
		h.fail(w, err)
		return
	}
	rec, err := h.svc.Reconcile(r.Context(), caller, itemID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if movements == nil {
		movements = []inventory.Movement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_id":        itemID,
		"movements":      movements,
		"reconciliation": rec,
		"balanced":       rec.Balanced(),
	})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (identity.Caller, bool) {
	c, ok := identity.CallerFromContext(r.Context())
	if !ok || !c.Valid() {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return identity.Caller{}, false
	}
	return c, true
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case appointment.IsValidation(err), errors.Is(err, scheduling.ErrInvalidDuration),
		errors.Is(err, inventory.ErrInvalidAdjustment):
		return http.StatusBadRequest
	case errors.Is(err, appointment.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, appointment.ErrNotFound), errors.Is(err, catalog.ErrServiceNotFound),
		errors.Is(err, inventory.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, appointment.ErrSlotUnavailable), errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, appointment.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("bookings request failed", "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
