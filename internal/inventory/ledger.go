package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medspa-practice/internal/observability/metrics"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

var inventoryTracer = otel.Tracer("medspa.internal.inventory")

// Ledger applies stock changes atomically and records one movement per change.
type Ledger struct {
	store   Store
	logger  *logging.Logger
	metrics *metrics.InventoryMetrics
	now     func() time.Time
}

// NewLedger constructs a ledger. metrics may be nil.
func NewLedger(store Store, logger *logging.Logger, m *metrics.InventoryMetrics) *Ledger {
	if store == nil {
		panic("inventory: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ledger{
		store:   store,
		logger:  logger.Component("inventory"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Consume decrements every item linked to serviceID by its per-service quantity.
// Either all items are decremented or none are.
func (l *Ledger) Consume(ctx context.Context, serviceID, appointmentID, actor string) (*ConsumptionResult, error) {
	ctx, span := inventoryTracer.Start(ctx, "inventory.consume")
	defer span.End()
	span.SetAttributes(
		attribute.String("medspa.service_id", serviceID),
		attribute.String("medspa.appointment_id", appointmentID),
	)

	result := &ConsumptionResult{ServiceID: serviceID, AppointmentID: appointmentID}
	err := l.store.InTx(ctx, func(tx Tx) error {
		result.Movements = nil
		result.LowStock = nil

		usages, err := tx.UsageForService(ctx, serviceID)
		if err != nil {
			return err
		}
		if len(usages) == 0 {
			return nil
		}

		required := make(map[string]int, len(usages))
		for _, u := range usages {
			required[u.ItemID] += u.Quantity
		}
		ids := make([]string, 0, len(required))
		for id := range required {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		items, err := tx.LockItems(ctx, ids)
		if err != nil {
			return err
		}

		var shortages []Shortage
		for _, id := range ids {
			item, ok := items[id]
			if !ok {
				return fmt.Errorf("%w: %s", ErrItemNotFound, id)
			}
			if item.Stock-required[id] < 0 {
				shortages = append(shortages, Shortage{ItemID: id, Available: item.Stock, Required: required[id]})
			}
		}
		if len(shortages) > 0 {
			return &InsufficientStockError{ServiceID: serviceID, Shortages: shortages}
		}

		now := l.now()
		for _, id := range ids {
			item := items[id]
			item.Stock -= required[id]
			if err := tx.SetStock(ctx, id, item.Stock); err != nil {
				return err
			}
			m := Movement{
				ID:            uuid.NewString(),
				ItemID:        id,
				Delta:         -required[id],
				Reason:        ReasonServiceConsumption,
				AppointmentID: appointmentID,
				Actor:         actor,
				CreatedAt:     now,
			}
			if err := tx.AppendMovement(ctx, m); err != nil {
				return err
			}
			result.Movements = append(result.Movements, m)
			if item.Low() {
				result.LowStock = append(result.LowStock, LowStockAlert{
					ItemID: id, Name: item.Name, Stock: item.Stock, Threshold: item.MinStock,
				})
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		outcome := "error"
		if errors.Is(err, ErrInsufficientStock) {
			outcome = "insufficient_stock"
		}
		l.metrics.ObserveConsume(outcome, 0)
		l.logger.Warn("service consumption failed", "service_id", serviceID, "appointment_id", appointmentID, "error", err)
		return nil, err
	}

	units := 0
	for _, m := range result.Movements {
		units -= m.Delta
	}
	l.metrics.ObserveConsume("ok", units)
	l.metrics.ObserveLowStock(len(result.LowStock))
	for _, alert := range result.LowStock {
		l.logger.Warn("low stock", "item_id", alert.ItemID, "stock", alert.Stock, "threshold", alert.Threshold)
	}
	l.logger.Info("service consumed", "service_id", serviceID, "appointment_id", appointmentID, "movements", len(result.Movements))
	return result, nil
}

// Adjust applies a manual restock, write-off or correction.
func (l *Ledger) Adjust(ctx context.Context, itemID string, delta int, reason Reason, actor string) (*Movement, *LowStockAlert, error) {
	if delta == 0 {
		return nil, nil, fmt.Errorf("%w: delta must be non-zero", ErrInvalidAdjustment)
	}
	if _, ok := ParseReason(string(reason)); !ok {
		return nil, nil, fmt.Errorf("%w: reason %q", ErrInvalidAdjustment, reason)
	}
	ctx, span := inventoryTracer.Start(ctx, "inventory.adjust")
	defer span.End()
	span.SetAttributes(attribute.String("medspa.item_id", itemID), attribute.Int("medspa.delta", delta))

	var (
		movement Movement
		alert    *LowStockAlert
	)
	err := l.store.InTx(ctx, func(tx Tx) error {
		alert = nil
		items, err := tx.LockItems(ctx, []string{itemID})
		if err != nil {
			return err
		}
		item, ok := items[itemID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}
		next := item.Stock + delta
		if next < 0 {
			return &InsufficientStockError{Shortages: []Shortage{{ItemID: itemID, Available: item.Stock, Required: -delta}}}
		}
		if err := tx.SetStock(ctx, itemID, next); err != nil {
			return err
		}
		movement = Movement{
			ID:        uuid.NewString(),
			ItemID:    itemID,
			Delta:     delta,
			Reason:    reason,
			Actor:     actor,
			CreatedAt: l.now(),
		}
		if err := tx.AppendMovement(ctx, movement); err != nil {
			return err
		}
		item.Stock = next
		if item.Low() {
			alert = &LowStockAlert{ItemID: itemID, Name: item.Name, Stock: next, Threshold: item.MinStock}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	l.metrics.ObserveLowStock(btoi(alert != nil))
	l.logger.Info("stock adjusted", "item_id", itemID, "delta", delta, "reason", reason, "actor", actor)
	return &movement, alert, nil
}

// Movements returns the item's ledger, oldest first.
func (l *Ledger) Movements(ctx context.Context, itemID string) ([]Movement, error) {
	if _, err := l.store.Item(ctx, itemID); err != nil {
		return nil, err
	}
	return l.store.Movements(ctx, itemID)
}

// Reconcile compares current stock with the sum of movement deltas.
func (l *Ledger) Reconcile(ctx context.Context, itemID string) (Reconciliation, error) {
	item, err := l.store.Item(ctx, itemID)
	if err != nil {
		return Reconciliation{}, err
	}
	sum, err := l.store.MovementSum(ctx, itemID)
	if err != nil {
		return Reconciliation{}, err
	}
	rec := Reconciliation{ItemID: itemID, Stock: item.Stock, LedgerSum: sum}
	if !rec.Balanced() {
		l.logger.Error("stock ledger out of balance", "item_id", itemID, "stock", item.Stock, "ledger_sum", sum)
	}
	return rec, nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
