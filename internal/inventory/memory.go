package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps inventory in process. A transaction holds the store lock
// for its whole duration and works on a copy that is swapped in on commit.
type MemoryStore struct {
	mu        sync.Mutex
	items     map[string]Item
	usages    map[string][]Usage
	movements []Movement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make(map[string]Item),
		usages: make(map[string][]Usage),
	}
}

// AddItem registers an item. Opening stock is recorded as a restock movement.
func (s *MemoryStore) AddItem(item Item, actor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	if item.Stock != 0 {
		s.movements = append(s.movements, Movement{
			ID:        uuid.NewString(),
			ItemID:    item.ID,
			Delta:     item.Stock,
			Reason:    ReasonRestock,
			Actor:     actor,
			CreatedAt: time.Now().UTC(),
		})
	}
}

// LinkService records that one performance of a service uses quantity of an item.
func (s *MemoryStore) LinkService(u Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usages[u.ServiceID] = append(s.usages[u.ServiceID], u)
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s, items: make(map[string]Item, len(s.items))}
	for id, item := range s.items {
		tx.items[id] = item
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("inventory: commit: %w", err)
	}
	s.items = tx.items
	s.movements = append(s.movements, tx.movements...)
	return nil
}

func (s *MemoryStore) Item(_ context.Context, itemID string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return &item, nil
}

func (s *MemoryStore) Movements(_ context.Context, itemID string) ([]Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Movement
	for _, m := range s.movements {
		if m.ItemID == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) MovementSum(_ context.Context, itemID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, m := range s.movements {
		if m.ItemID == itemID {
			sum += m.Delta
		}
	}
	return sum, nil
}

type memoryTx struct {
	store     *MemoryStore
	items     map[string]Item
	movements []Movement
}

func (t *memoryTx) UsageForService(_ context.Context, serviceID string) ([]Usage, error) {
	return append([]Usage(nil), t.store.usages[serviceID]...), nil
}

func (t *memoryTx) LockItems(_ context.Context, ids []string) (map[string]*Item, error) {
	out := make(map[string]*Item, len(ids))
	for _, id := range ids {
		if item, ok := t.items[id]; ok {
			out[id] = &item
		}
	}
	return out, nil
}

func (t *memoryTx) SetStock(_ context.Context, itemID string, stock int) error {
	item, ok := t.items[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if stock < 0 {
		return fmt.Errorf("inventory: stock for %s would be negative", itemID)
	}
	item.Stock = stock
	item.UpdatedAt = time.Now().UTC()
	t.items[itemID] = item
	return nil
}

func (t *memoryTx) AppendMovement(_ context.Context, m Movement) error {
	t.movements = append(t.movements, m)
	return nil
}
