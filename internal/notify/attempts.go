package notify

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AttemptStore is the append-only notification history.
type AttemptStore interface {
	AttemptRecorder
	// LatestAttempts returns the newest attempt per channel, ordered by channel.
	LatestAttempts(ctx context.Context, appointmentID string) ([]Attempt, error)
	// History returns all attempts, oldest first, optionally limited to channels.
	History(ctx context.Context, appointmentID string, channels ...Channel) ([]Attempt, error)
}

// SQLAttemptStore persists attempts through database/sql with the lib/pq driver.
type SQLAttemptStore struct {
	db *sql.DB
}

func NewSQLAttemptStore(db *sql.DB) *SQLAttemptStore {
	if db == nil {
		panic("notify: sql db required")
	}
	return &SQLAttemptStore{db: db}
}

func (s *SQLAttemptStore) Record(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_attempts (id, appointment_id, event, channel, status, detail, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.AppointmentID, string(a.Event), string(a.Channel), string(a.Status), nullString(a.Detail), a.AttemptedAt)
	if err != nil {
		return fmt.Errorf("notify: record attempt: %w", err)
	}
	return nil
}

func (s *SQLAttemptStore) LatestAttempts(ctx context.Context, appointmentID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (channel) id, appointment_id, event, channel, status, COALESCE(detail, ''), attempted_at
		FROM notification_attempts
		WHERE appointment_id = $1
		ORDER BY channel, attempted_at DESC, id DESC`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("notify: latest attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func (s *SQLAttemptStore) History(ctx context.Context, appointmentID string, channels ...Channel) ([]Attempt, error) {
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, string(ch))
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, appointment_id, event, channel, status, COALESCE(detail, ''), attempted_at
		FROM notification_attempts
		WHERE appointment_id = $1 AND (cardinality($2::text[]) = 0 OR channel = ANY($2))
		ORDER BY attempted_at ASC, id ASC`, appointmentID, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("notify: attempt history: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var out []Attempt
	for rows.Next() {
		var a Attempt
		var event, channel, status string
		if err := rows.Scan(&a.ID, &a.AppointmentID, &event, &channel, &status, &a.Detail, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("notify: scan attempt: %w", err)
		}
		a.Event, a.Channel, a.Status = EventKind(event), Channel(channel), AttemptStatus(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notify: iterate attempts: %w", err)
	}
	return out, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// MemoryAttemptStore keeps attempts in process.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts []Attempt
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{}
}

func (s *MemoryAttemptStore) Record(_ context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, a)
	return nil
}

// LatestAttempts relies on insertion order; later records win ties.
func (s *MemoryAttemptStore) LatestAttempts(_ context.Context, appointmentID string) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[Channel]Attempt)
	for _, a := range s.attempts {
		if a.AppointmentID != appointmentID {
			continue
		}
		if cur, ok := latest[a.Channel]; !ok || !a.AttemptedAt.Before(cur.AttemptedAt) {
			latest[a.Channel] = a
		}
	}
	out := make([]Attempt, 0, len(latest))
	for _, a := range latest {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y Attempt) int {
		switch {
		case x.Channel < y.Channel:
			return -1
		case x.Channel > y.Channel:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *MemoryAttemptStore) History(_ context.Context, appointmentID string, channels ...Channel) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Attempt
	for _, a := range s.attempts {
		if a.AppointmentID != appointmentID {
			continue
		}
		if len(channels) > 0 && !slices.Contains(channels, a.Channel) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
