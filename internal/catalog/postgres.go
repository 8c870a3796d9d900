package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads the services table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository wires a pgx pool (or mock) into a repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("catalog: db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, duration_minutes, price::text
		FROM services
		WHERE id = $1`, id)
	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get service: %w", err)
	}
	return &svc, nil
}

func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) ([]Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, name, duration_minutes, price::text
		FROM services
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	found := make(map[string]Service, len(ids))
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		found[svc.ID] = svc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate services: %w", err)
	}
	if err := missing(ids, found); err != nil {
		return nil, err
	}
	return ordered(ids, found), nil
}

// Upsert writes a service. Existing appointments keep their own snapshot.
func (r *PostgresRepository) Upsert(ctx context.Context, svc Service) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO services (id, name, duration_minutes, price)
		VALUES ($1, $2, $3, $4::numeric)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, duration_minutes = EXCLUDED.duration_minutes,
		    price = EXCLUDED.price, updated_at = now()`,
		svc.ID, svc.Name, int(svc.Duration/time.Minute), svc.Price.String())
	if err != nil {
		return fmt.Errorf("catalog: upsert service: %w", err)
	}
	return nil
}

func scanService(row pgx.Row) (Service, error) {
	var (
		svc     Service
		minutes int
		price   string
	)
	if err := row.Scan(&svc.ID, &svc.Name, &minutes, &price); err != nil {
		return Service{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Service{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	svc.Duration = time.Duration(minutes) * time.Minute
	svc.Price = p
	return svc, nil
}
