package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/medspa-practice/internal/appointment"
	"github.com/wolfman30/medspa-practice/internal/scheduling"
)

// SQLSTATE for exclusion_violation, raised by appointments_no_overlap.
const exclusionViolation = "23P01"

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in Postgres. Overlap prevention is
// enforced by a gist exclusion constraint on (practitioner_id, tstzrange).
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("bookings: db required")
	}
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, practitioner_id, COALESCE(client_id, ''), is_external_client,
	COALESCE(external_first_name, ''), COALESCE(external_last_name, ''), COALESCE(external_phone, ''), COALESCE(external_email, ''),
	service_ids, total_duration_minutes, total_price::text, appointment_date, start_time, end_time,
	status, COALESCE(notes, ''), invoice_eligible_at, deleted_at, created_at, updated_at`

func (r *PostgresRepository) Insert(ctx context.Context, a *appointment.Appointment) error {
	var clientID *string
	var first, last, phone, email *string
	external := false
	switch c := a.Client.(type) {
	case appointment.RegisteredClient:
		clientID = &c.ID
	case appointment.ExternalClient:
		external = true
		first, last, phone = &c.FirstName, &c.LastName, &c.Phone
		if c.Email != "" {
			email = &c.Email
		}
	default:
		return appointment.ErrNoClientSelected
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (
			id, practitioner_id, client_id, is_external_client,
			external_first_name, external_last_name, external_phone, external_email,
			service_ids, total_duration_minutes, total_price, appointment_date,
			start_time, end_time, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12, $13, $14, $15, $16, $17, $17)`,
		a.ID, a.PractitionerID, clientID, external,
		first, last, phone, email,
		a.ServiceIDs, int(a.TotalDuration/time.Minute), a.TotalPrice.String(), a.Date,
		a.StartTime, a.EndTime, string(a.Status), nullIfEmpty(a.Notes), a.CreatedAt,
	)
	if err != nil {
		return mapWriteError("insert appointment", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*appointment.Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND deleted_at IS NULL`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", appointment.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: get appointment: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) List(ctx context.Context, q appointment.Query) ([]*appointment.Appointment, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if q.Scope.ClientID != "" {
		add("client_id = $%d", q.Scope.ClientID)
	}
	if q.PractitionerID != "" {
		add("practitioner_id = $%d", q.PractitionerID)
	}
	if !q.From.IsZero() {
		add("end_time >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("start_time < $%d", q.To)
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			statuses = append(statuses, string(s))
		}
		add("status = ANY($%d)", statuses)
	}

	rows, err := r.db.Query(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY start_time ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: list appointments: %w", err)
	}
	defer rows.Close()

	var out []*appointment.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan appointment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate appointments: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Busy(ctx context.Context, practitionerID string, from, to time.Time, excludeID string) ([]scheduling.Interval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE practitioner_id = $1
		  AND status <> 'cancelled' AND deleted_at IS NULL
		  AND start_time < $3 AND end_time > $2
		  AND id <> $4
		ORDER BY start_time`, practitionerID, from, to, excludeID)
	if err != nil {
		return nil, fmt.Errorf("bookings: busy intervals: %w", err)
	}
	defer rows.Close()

	var out []scheduling.Interval
	for rows.Next() {
		var iv scheduling.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("bookings: scan interval: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to appointment.Status) (*appointment.Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
		RETURNING `+appointmentColumns, id, string(from), string(to))
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.explainMiss(ctx, id, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: update status: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Reschedule(ctx context.Context, id string, date, start, end time.Time) (*appointment.Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2, start_time = $3, end_time = $4, updated_at = now()
		WHERE id = $1 AND status = 'scheduled' AND deleted_at IS NULL
		RETURNING `+appointmentColumns, id, date, start, end)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.explainMiss(ctx, id, appointment.StatusScheduled, appointment.StatusScheduled)
	}
	if err != nil {
		return nil, mapWriteError("reschedule appointment", err)
	}
	return a, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("bookings: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", appointment.ErrNotFound, id)
	}
	return nil
}

func (r *PostgresRepository) MarkInvoiceEligible(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET invoice_eligible_at = COALESCE(invoice_eligible_at, $2), updated_at = now()
		WHERE id = $1 AND status = 'completed'`, id, at)
	if err != nil {
		return fmt.Errorf("bookings: mark invoice eligible: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bookings: appointment %s is not completed", id)
	}
	return nil
}

// explainMiss distinguishes a missing row from a lost status race.
func (r *PostgresRepository) explainMiss(ctx context.Context, id string, from, to appointment.Status) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s (currently %s)", appointment.ErrInvalidTransition, from, to, current.Status)
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return appointment.ErrSlotUnavailable
	}
	return fmt.Errorf("bookings: %s: %w", op, err)
}

func scanAppointment(row pgx.Row) (*appointment.Appointment, error) {
	var (
		a                         appointment.Appointment
		clientID                  string
		external                  bool
		first, last, phone, email string
		minutes                   int
		price, status             string
	)
	err := row.Scan(&a.ID, &a.PractitionerID, &clientID, &external,
		&first, &last, &phone, &email,
		&a.ServiceIDs, &minutes, &price, &a.Date, &a.StartTime, &a.EndTime,
		&status, &a.Notes, &a.InvoiceEligibleAt, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if external {
		a.Client = appointment.ExternalClient{FirstName: first, LastName: last, Phone: phone, Email: email}
	} else {
		a.Client = appointment.RegisteredClient{ID: clientID}
	}
	a.TotalDuration = time.Duration(minutes) * time.Minute
	if a.TotalPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse total price %q: %w", price, err)
	}
	a.Status = appointment.Status(status)
	return &a, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
