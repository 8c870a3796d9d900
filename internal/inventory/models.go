// Package inventory keeps stock levels and their append-only movement ledger.
//
// Every stock change happens inside a Store transaction together with exactly one
// Movement, so an item's stock always equals the sum of its movement deltas.
package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientStock is the sentinel wrapped by *InsufficientStockError.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrItemNotFound is returned for unknown inventory items.
	ErrItemNotFound = errors.New("inventory: item not found")
	// ErrInvalidAdjustment is returned for zero-delta or unknown-reason adjustments.
	ErrInvalidAdjustment = errors.New("inventory: invalid adjustment")
)

// Item is a stocked consumable.
type Item struct {
	ID        string
	Name      string
	Stock     int
	UnitCost  decimal.Decimal
	MinStock  int
	UpdatedAt time.Time
}

// Low reports whether stock is at or below the minimum threshold.
func (i *Item) Low() bool {
	return i.Stock <= i.MinStock
}

// Usage links a service to the quantity of an item one performance consumes.
type Usage struct {
	ServiceID string
	ItemID    string
	Quantity  int
}

// Reason categorizes a movement.
type Reason string

const (
	ReasonServiceConsumption Reason = "service_consumption"
	ReasonRestock            Reason = "restock"
	ReasonWriteOff           Reason = "write_off"
	ReasonCorrection         Reason = "correction"
)

// ParseReason validates a manual adjustment reason. Service consumption is not
// accepted here; it is only written by Consume.
func ParseReason(raw string) (Reason, bool) {
	switch r := Reason(strings.ToLower(strings.TrimSpace(raw))); r {
	case ReasonRestock, ReasonWriteOff, ReasonCorrection:
		return r, true
	default:
		return "", false
	}
}

// Movement is one immutable signed stock change.
type Movement struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	Delta         int       `json:"delta"`
	Reason        Reason    `json:"reason"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	Actor         string    `json:"actor"`
	CreatedAt     time.Time `json:"created_at"`
}

// LowStockAlert reports an item left at or below its threshold.
type LowStockAlert struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// ConsumptionResult is the outcome of fulfilling one service.
type ConsumptionResult struct {
	ServiceID     string
	AppointmentID string
	Movements     []Movement
	LowStock      []LowStockAlert
}

// Shortage names one item that could not cover the request.
type Shortage struct {
	ItemID    string `json:"item_id"`
	Available int    `json:"available"`
	Required  int    `json:"required"`
}

// InsufficientStockError lists every short item. No stock was changed.
type InsufficientStockError struct {
	ServiceID string
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (have %d, need %d)", s.ItemID, s.Available, s.Required))
	}
	if e.ServiceID != "" {
		return fmt.Sprintf("inventory: insufficient stock for service %s: %s", e.ServiceID, strings.Join(parts, ", "))
	}
	return "inventory: insufficient stock: " + strings.Join(parts, ", ")
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Reconciliation compares an item's stock with its movement ledger.
type Reconciliation struct {
	ItemID    string `json:"item_id"`
	Stock     int    `json:"stock"`
	LedgerSum int    `json:"ledger_sum"`
}

// Balanced reports whether stock matches the ledger.
func (r Reconciliation) Balanced() bool { return r.Stock == r.LedgerSum }
