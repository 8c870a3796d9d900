package catalog

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotals(t *testing.T) {
	d, p := Totals([]Service{
		{ID: "a", Duration: 30 * time.Minute, Price: decimal.RequireFromString("45.50")},
		{ID: "b", Duration: 15 * time.Minute, Price: decimal.RequireFromString("20.25")},
	})
	assert.Equal(t, 45*time.Minute, d)
	assert.True(t, decimal.RequireFromString("65.75").Equal(p))
}

func TestMemoryRepositoryGetMany(t *testing.T) {
	repo := NewMemoryRepository(
		Service{ID: "facial", Duration: 30 * time.Minute},
		Service{ID: "peel", Duration: 45 * time.Minute},
	)

	got, err := repo.GetMany(context.Background(), []string{"peel", "facial", "peel"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "peel", got[0].ID)
	assert.Equal(t, "facial", got[1].ID)

	_, err = repo.GetMany(context.Background(), []string{"facial", "botox"})
	require.ErrorIs(t, err, ErrServiceNotFound)
	assert.Contains(t, err.Error(), "botox")
}

func TestPostgresRepositoryGetMany(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	ids := []string{"svc-2", "svc-1"}
	rows := pgxmock.NewRows([]string{"id", "name", "duration_minutes", "price"}).
		AddRow("svc-1", "Facial", 30, "80.00").
		AddRow("svc-2", "Peel", 45, "120.50")
	mock.ExpectQuery("SELECT id, name, duration_minutes").WithArgs(ids).WillReturnRows(rows)

	got, err := repo.GetMany(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "svc-2", got[0].ID)
	assert.Equal(t, 45*time.Minute, got[0].Duration)
	assert.True(t, decimal.RequireFromString("120.5").Equal(got[0].Price))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetManyMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	rows := pgxmock.NewRows([]string{"id", "name", "duration_minutes", "price"}).
		AddRow("svc-1", "Facial", 30, "80.00")
	mock.ExpectQuery("SELECT id, name, duration_minutes").
		WithArgs([]string{"svc-1", "svc-9"}).
		WillReturnRows(rows)

	_, err = repo.GetMany(context.Background(), []string{"svc-1", "svc-9"})
	require.ErrorIs(t, err, ErrServiceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	mock.ExpectExec("INSERT INTO services").
		WithArgs("svc-1", "Facial", 30, "80").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Upsert(context.Background(), Service{ID: "svc-1", Name: "Facial", Duration: 30 * time.Minute, Price: decimal.NewFromInt(80)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
