package notify

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ReminderStatus tracks a scheduled reminder.
type ReminderStatus string

const (
	ReminderPending    ReminderStatus = "pending"
	ReminderSending    ReminderStatus = "sending"
	ReminderSent       ReminderStatus = "sent"
	ReminderFailed     ReminderStatus = "failed"
	ReminderSuppressed ReminderStatus = "suppressed"
)

// Reminder is a future sms_reminder for one appointment.
type Reminder struct {
	ID            string
	AppointmentID string
	DueAt         time.Time
	Status        ReminderStatus
	Detail        string
	SentAt        *time.Time
	CreatedAt     time.Time
}

// ReminderStore schedules and tracks reminders.
type ReminderStore interface {
	Schedule(ctx context.Context, appointmentID string, dueAt time.Time) (*Reminder, error)
	// SuppressPending cancels every pending reminder for the appointment.
	SuppressPending(ctx context.Context, appointmentID string) (int, error)
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error)
	// Claim moves a pending reminder to sending. It reports false when the
	// reminder was already claimed or settled elsewhere; only the claimant
	// may dispatch it.
	Claim(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, detail string) error
}

// ReminderDB abstracts the pgx query interface for testing.
type ReminderDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresReminderStore keeps reminders in the appointment_reminders table.
type PostgresReminderStore struct {
	db ReminderDB
}

func NewPostgresReminderStore(db ReminderDB) *PostgresReminderStore {
	if db == nil {
		panic("notify: reminder db required")
	}
	return &PostgresReminderStore{db: db}
}

func (s *PostgresReminderStore) Schedule(ctx context.Context, appointmentID string, dueAt time.Time) (*Reminder, error) {
	r := &Reminder{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		DueAt:         dueAt.UTC(),
		Status:        ReminderPending,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO appointment_reminders (id, appointment_id, due_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		r.ID, r.AppointmentID, r.DueAt, string(r.Status), r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("notify: schedule reminder: %w", err)
	}
	return r, nil
}

func (s *PostgresReminderStore) SuppressPending(ctx context.Context, appointmentID string) (int, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointment_reminders SET status = 'suppressed', updated_at = now()
		WHERE appointment_id = $1 AND status IN ('pending', 'sending')`, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("notify: suppress reminders: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresReminderStore) ListDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, appointment_id, due_at, status, COALESCE(detail, ''), sent_at, created_at
		FROM appointment_reminders
		WHERE status = 'pending' AND due_at <= $1
		ORDER BY due_at ASC
		LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("notify: list due reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var (
			r      Reminder
			status string
		)
		if err := rows.Scan(&r.ID, &r.AppointmentID, &r.DueAt, &status, &r.Detail, &r.SentAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("notify: scan reminder: %w", err)
		}
		r.Status = ReminderStatus(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notify: iterate reminders: %w", err)
	}
	return out, nil
}

func (s *PostgresReminderStore) Claim(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointment_reminders SET status = 'sending', updated_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("notify: claim reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresReminderStore) MarkSent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointment_reminders SET status = 'sent', sent_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'sending')`, id)
	if err != nil {
		return fmt.Errorf("notify: mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notify: mark reminder sent: no pending reminder with id %s", id)
	}
	return nil
}

func (s *PostgresReminderStore) MarkFailed(ctx context.Context, id, detail string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE appointment_reminders SET status = 'failed', detail = $2, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'sending')`, id, detail)
	if err != nil {
		return fmt.Errorf("notify: mark reminder failed: %w", err)
	}
	return nil
}

// MemoryReminderStore keeps reminders in process.
type MemoryReminderStore struct {
	mu        sync.Mutex
	reminders map[string]*Reminder
}

func NewMemoryReminderStore() *MemoryReminderStore {
	return &MemoryReminderStore{reminders: make(map[string]*Reminder)}
}

func (s *MemoryReminderStore) Schedule(_ context.Context, appointmentID string, dueAt time.Time) (*Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Reminder{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		DueAt:         dueAt.UTC(),
		Status:        ReminderPending,
		CreatedAt:     time.Now().UTC(),
	}
	s.reminders[r.ID] = r
	cp := *r
	return &cp, nil
}

func (s *MemoryReminderStore) SuppressPending(_ context.Context, appointmentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reminders {
		if r.AppointmentID == appointmentID && unsettled(r.Status) {
			r.Status = ReminderSuppressed
			n++
		}
	}
	return n, nil
}

func (s *MemoryReminderStore) ListDue(_ context.Context, asOf time.Time, limit int) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reminder
	for _, r := range s.reminders {
		if r.Status == ReminderPending && !r.DueAt.After(asOf) {
			out = append(out, *r)
		}
	}
	slices.SortFunc(out, func(a, b Reminder) int { return a.DueAt.Compare(b.DueAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryReminderStore) Claim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok || r.Status != ReminderPending {
		return false, nil
	}
	r.Status = ReminderSending
	return true, nil
}

func (s *MemoryReminderStore) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok || !unsettled(r.Status) {
		return fmt.Errorf("notify: mark reminder sent: no pending reminder with id %s", id)
	}
	now := time.Now().UTC()
	r.Status = ReminderSent
	r.SentAt = &now
	return nil
}

func (s *MemoryReminderStore) MarkFailed(_ context.Context, id, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reminders[id]; ok && unsettled(r.Status) {
		r.Status = ReminderFailed
		r.Detail = detail
	}
	return nil
}

// ForAppointment lists every reminder for an appointment regardless of status.
func (s *MemoryReminderStore) ForAppointment(appointmentID string) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reminder
	for _, r := range s.reminders {
		if r.AppointmentID == appointmentID {
			out = append(out, *r)
		}
	}
	return out
}

func unsettled(status ReminderStatus) bool {
	return status == ReminderPending || status == ReminderSending
}
