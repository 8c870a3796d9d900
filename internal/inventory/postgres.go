package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/medspa-practice/pkg/logging"
)

// DB abstracts the pgx pool for testing; pgxmock.PgxPoolIface satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore runs each unit of work in one pgx transaction. Rows are locked
// with SELECT ... FOR UPDATE in id order so concurrent consumers serialize per item.
type PostgresStore struct {
	db     DB
	logger *logging.Logger
}

func NewPostgresStore(db DB, logger *logging.Logger) *PostgresStore {
	if db == nil {
		panic("inventory: db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("inventory: begin: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("inventory rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("inventory: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Item(ctx context.Context, itemID string) (*Item, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, stock, unit_cost::text, min_stock, updated_at
		FROM inventory_items
		WHERE id = $1`, itemID)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: get item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) Movements(ctx context.Context, itemID string) ([]Movement, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, item_id, delta, reason, COALESCE(appointment_id, ''), actor, created_at
		FROM stock_movements
		WHERE item_id = $1
		ORDER BY created_at ASC, id ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("inventory: list movements: %w", err)
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var (
			m      Movement
			reason string
		)
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Delta, &reason, &m.AppointmentID, &m.Actor, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("inventory: scan movement: %w", err)
		}
		m.Reason = Reason(reason)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: iterate movements: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MovementSum(ctx context.Context, itemID string) (int, error) {
	var sum int
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0)::int FROM stock_movements WHERE item_id = $1`, itemID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("inventory: sum movements: %w", err)
	}
	return sum, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) UsageForService(ctx context.Context, serviceID string) ([]Usage, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT service_id, item_id, quantity_used
		FROM service_inventory
		WHERE service_id = $1
		ORDER BY item_id`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("inventory: load usage: %w", err)
	}
	defer rows.Close()

	var out []Usage
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.ServiceID, &u.ItemID, &u.Quantity); err != nil {
			return nil, fmt.Errorf("inventory: scan usage: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: iterate usage: %w", err)
	}
	return out, nil
}

func (t *pgTx) LockItems(ctx context.Context, ids []string) (map[string]*Item, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, stock, unit_cost::text, min_stock, updated_at
		FROM inventory_items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("inventory: lock items: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*Item, len(ids))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("inventory: scan item: %w", err)
		}
		out[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: iterate items: %w", err)
	}
	return out, nil
}

func (t *pgTx) SetStock(ctx context.Context, itemID string, stock int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE inventory_items SET stock = $2, updated_at = now()
		WHERE id = $1`, itemID, stock)
	if err != nil {
		return fmt.Errorf("inventory: set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return nil
}

func (t *pgTx) AppendMovement(ctx context.Context, m Movement) error {
	var appointmentID *string
	if m.AppointmentID != "" {
		appointmentID = &m.AppointmentID
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stock_movements (id, item_id, delta, reason, appointment_id, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.ItemID, m.Delta, string(m.Reason), appointmentID, m.Actor, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inventory: append movement: %w", err)
	}
	return nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var (
		item Item
		cost string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Stock, &cost, &item.MinStock, &item.UpdatedAt); err != nil {
		return nil, err
	}
	c, err := decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("parse unit cost %q: %w", cost, err)
	}
	item.UnitCost = c
	return &item, nil
}
