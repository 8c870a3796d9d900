package notify

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresReminderStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresReminderStore(mock)
	due := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO appointment_reminders").
		WithArgs(pgxmock.AnyArg(), "appt-1", due, "pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	r, err := store.Schedule(context.Background(), "appt-1", due)
	require.NoError(t, err)
	assert.Equal(t, ReminderPending, r.Status)

	rows := pgxmock.NewRows([]string{"id", "appointment_id", "due_at", "status", "detail", "sent_at", "created_at"}).
		AddRow(r.ID, "appt-1", due, "pending", "", nil, time.Now())
	mock.ExpectQuery("FROM appointment_reminders").WithArgs(due, 100).WillReturnRows(rows)
	list, err := store.ListDue(context.Background(), due, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].SentAt)

	mock.ExpectExec("UPDATE appointment_reminders SET status = 'sent'").WithArgs(r.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.MarkSent(context.Background(), r.ID))

	mock.ExpectExec("UPDATE appointment_reminders SET status = 'suppressed'").WithArgs("appt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	n, err := store.SuppressPending(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReminderStoreMarkSentRequiresPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresReminderStore(mock)
	mock.ExpectExec("UPDATE appointment_reminders").WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.Error(t, store.MarkSent(context.Background(), "r-1"))
}

func TestMemoryReminderStore(t *testing.T) {
	store := NewMemoryReminderStore()
	ctx := context.Background()
	now := time.Now().UTC()

	early, _ := store.Schedule(ctx, "appt-1", now.Add(-2*time.Hour))
	_, _ = store.Schedule(ctx, "appt-2", now.Add(-time.Hour))
	_, _ = store.Schedule(ctx, "appt-3", now.Add(time.Hour))

	due, err := store.ListDue(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)

	n, err := store.SuppressPending(ctx, "appt-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	due, _ = store.ListDue(ctx, now, 0)
	require.Len(t, due, 1)
	require.NoError(t, store.MarkSent(ctx, early.ID))
	require.Error(t, store.MarkSent(ctx, early.ID))
}

func TestPostgresReminderStoreClaim(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresReminderStore(mock)
	mock.ExpectExec("UPDATE appointment_reminders SET status = 'sending'").WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE appointment_reminders SET status = 'sending'").WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.Claim(context.Background(), "r-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Claim(context.Background(), "r-1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryReminderStoreClaim(t *testing.T) {
	store := NewMemoryReminderStore()
	ctx := context.Background()
	now := time.Now().UTC()
	r, _ := store.Schedule(ctx, "appt-1", now.Add(-time.Minute))

	ok, err := store.Claim(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = store.Claim(ctx, r.ID)
	assert.False(t, ok, "second claim must lose")
	due, _ := store.ListDue(ctx, now, 0)
	assert.Empty(t, due)

	require.NoError(t, store.MarkSent(ctx, r.ID))
	assert.Equal(t, ReminderSent, store.ForAppointment("appt-1")[0].Status)

	ok, _ = store.Claim(ctx, "missing")
	assert.False(t, ok)
}
