package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-practice/internal/appointment"
)

var apptColumns = []string{
	"id", "practitioner_id", "client_id", "is_external_client",
	"external_first_name", "external_last_name", "external_phone", "external_email",
	"service_ids", "total_duration_minutes", "total_price", "appointment_date", "start_time", "end_time",
	"status", "notes", "invoice_eligible_at", "deleted_at", "created_at", "updated_at",
}

func insertArgs() []any {
	args := make([]any, 17)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func externalRow(rows *pgxmock.Rows, id string, status appointment.Status) *pgxmock.Rows {
	now := time.Date(2026, 5, 30, 8, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "prac-1", "", true,
		"Jane", "Doe", "0821234567", "",
		[]string{"consult"}, 30, "50.00", at(0, 0), at(10, 0), at(10, 30),
		string(status), "", (*time.Time)(nil), (*time.Time)(nil), now, now)
}

func TestPostgresInsert_External(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	appt := &appointment.Appointment{
		ID:             "appt-1",
		PractitionerID: "prac-1",
		Client:         appointment.ExternalClient{FirstName: "Jane", LastName: "Doe", Phone: "0821234567"},
		ServiceIDs:     []string{"consult"},
		TotalDuration:  30 * time.Minute,
		TotalPrice:     decimal.RequireFromString("50.00"),
		Date:           at(0, 0),
		StartTime:      at(10, 0),
		EndTime:        at(10, 30),
		Status:         appointment.StatusScheduled,
		CreatedAt:      fixedNow,
	}

	anyArg := pgxmock.AnyArg()
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs("appt-1", "prac-1", anyArg, true,
			anyArg, anyArg, anyArg, anyArg,
			[]string{"consult"}, 30, anyArg, at(0, 0),
			at(10, 0), at(10, 30), "scheduled", anyArg, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), appt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsert_ExclusionViolationIsSlotUnavailable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectExec("INSERT INTO appointments").WithArgs(insertArgs()...).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"})

	err = repo.Insert(context.Background(), &appointment.Appointment{
		ID: "appt-2", PractitionerID: "prac-1", Client: appointment.RegisteredClient{ID: "client-ana"},
		StartTime: at(10, 0), EndTime: at(10, 30), Status: appointment.StatusScheduled,
	})
	require.ErrorIs(t, err, appointment.ErrSlotUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsert_OtherErrorsWrapped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectExec("INSERT INTO appointments").WithArgs(insertArgs()...).
		WillReturnError(errors.New("connection reset"))

	err = repo.Insert(context.Background(), &appointment.Appointment{
		ID: "appt-3", PractitionerID: "prac-1", Client: appointment.RegisteredClient{ID: "client-ana"},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, appointment.ErrSlotUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("FROM appointments").WithArgs("appt-1").
		WillReturnRows(externalRow(pgxmock.NewRows(apptColumns), "appt-1", appointment.StatusScheduled))

	appt, err := repo.Get(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.True(t, appt.IsExternalClient())
	assert.Equal(t, 30*time.Minute, appt.TotalDuration)
	assert.True(t, decimal.RequireFromString("50").Equal(appt.TotalPrice))
	assert.Nil(t, appt.DeletedAt)

	mock.ExpectQuery("FROM appointments").WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(apptColumns))
	_, err = repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, appointment.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList_ScopeAlwaysApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`client_id = \$1 AND practitioner_id = \$2 AND end_time >= \$3 AND start_time < \$4 AND status = ANY\(\$5\)`).
		WithArgs("client-ana", "prac-1", at(0, 0), at(23, 0), []string{"scheduled"}).
		WillReturnRows(pgxmock.NewRows(apptColumns))

	appts, err := repo.List(context.Background(), appointment.Query{
		Scope:          appointment.Scope{ClientID: "client-ana"},
		PractitionerID: "prac-1",
		From:           at(0, 0),
		To:             at(23, 0),
		Statuses:       []appointment.Status{appointment.StatusScheduled},
	})
	require.NoError(t, err)
	assert.Empty(t, appts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBusy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT start_time, end_time").
		WithArgs("prac-1", at(8, 0), at(20, 0), "appt-1").
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "end_time"}).
			AddRow(at(9, 0), at(9, 30)).
			AddRow(at(11, 0), at(11, 45)))

	busy, err := repo.Busy(context.Background(), "prac-1", at(8, 0), at(20, 0), "appt-1")
	require.NoError(t, err)
	require.Len(t, busy, 2)
	assert.Equal(t, at(11, 45), busy[1].End)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("UPDATE appointments SET status").WithArgs("appt-1", "scheduled", "cancelled").
		WillReturnRows(externalRow(pgxmock.NewRows(apptColumns), "appt-1", appointment.StatusCancelled))
	appt, err := repo.UpdateStatus(context.Background(), "appt-1", appointment.StatusScheduled, appointment.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, appt.Status)

	// Lost race: the row moved on before this update landed.
	mock.ExpectQuery("UPDATE appointments SET status").WithArgs("appt-1", "scheduled", "completed").
		WillReturnRows(pgxmock.NewRows(apptColumns))
	mock.ExpectQuery("FROM appointments").WithArgs("appt-1").
		WillReturnRows(externalRow(pgxmock.NewRows(apptColumns), "appt-1", appointment.StatusCancelled))
	_, err = repo.UpdateStatus(context.Background(), "appt-1", appointment.StatusScheduled, appointment.StatusCompleted)
	require.ErrorIs(t, err, appointment.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReschedule_Conflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("UPDATE appointments").WithArgs("appt-1", at(0, 0), at(11, 0), at(11, 30)).
		WillReturnError(&pgconn.PgError{Code: "23P01"})
	_, err = repo.Reschedule(context.Background(), "appt-1", at(0, 0), at(11, 0), at(11, 30))
	require.ErrorIs(t, err, appointment.ErrSlotUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSoftDeleteAndInvoice(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectExec("SET deleted_at").WithArgs("appt-1", fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SoftDelete(context.Background(), "appt-1", fixedNow))

	mock.ExpectExec("SET deleted_at").WithArgs("appt-1", fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, repo.SoftDelete(context.Background(), "appt-1", fixedNow), appointment.ErrNotFound)

	mock.ExpectExec("SET invoice_eligible_at").WithArgs("appt-2", fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.MarkInvoiceEligible(context.Background(), "appt-2", fixedNow))

	mock.ExpectExec("SET invoice_eligible_at").WithArgs("appt-3", fixedNow).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.Error(t, repo.MarkInvoiceEligible(context.Background(), "appt-3", fixedNow))
	require.NoError(t, mock.ExpectationsWereMet())
}
