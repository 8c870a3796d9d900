package inventory

import "context"

// Tx is the set of operations available inside one atomic unit of work.
type Tx interface {
	UsageForService(ctx context.Context, serviceID string) ([]Usage, error)
	// LockItems loads and locks the items in ascending id order. Missing ids are absent from the map.
	LockItems(ctx context.Context, ids []string) (map[string]*Item, error)
	SetStock(ctx context.Context, itemID string, stock int) error
	AppendMovement(ctx context.Context, m Movement) error
}

// Store persists items and movements. InTx commits only when fn returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Item(ctx context.Context, itemID string) (*Item, error)
	Movements(ctx context.Context, itemID string) ([]Movement, error)
	MovementSum(ctx context.Context, itemID string) (int, error)
}
