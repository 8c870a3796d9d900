package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewLedger(store, nil, nil), store
}

func assertBalanced(t *testing.T, l *Ledger, itemID string) {
	t.Helper()
	rec, err := l.Reconcile(context.Background(), itemID)
	require.NoError(t, err)
	assert.True(t, rec.Balanced(), "stock %d != ledger %d for %s", rec.Stock, rec.LedgerSum, itemID)
}

func TestConsumeDecrementsAndRecordsMovements(t *testing.T) {
	ledger, store := newTestLedger(t)
	store.AddItem(Item{ID: "gloves", Name: "Gloves", Stock: 10, MinStock: 2}, "setup")
	store.AddItem(Item{ID: "serum", Name: "Serum", Stock: 4, MinStock: 3}, "setup")
	store.LinkService(Usage{ServiceID: "facial", ItemID: "gloves", Quantity: 2})
	store.LinkService(Usage{ServiceID: "facial", ItemID: "serum", Quantity: 1})

	res, err := ledger.Consume(context.Background(), "facial", "appt-1", "prac-1")
	require.NoError(t, err)
	require.Len(t, res.Movements, 2)
	for _, m := range res.Movements {
		assert.Equal(t, "appt-1", m.AppointmentID)
		assert.Equal(t, ReasonServiceConsumption, m.Reason)
		assert.Equal(t, "prac-1", m.Actor)
	}

	gloves, _ := store.Item(context.Background(), "gloves")
	serum, _ := store.Item(context.Background(), "serum")
	assert.Equal(t, 8, gloves.Stock)
	assert.Equal(t, 3, serum.Stock)

	require.Len(t, res.LowStock, 1)
	assert.Equal(t, "serum", res.LowStock[0].ItemID)
	assert.Equal(t, 3, res.LowStock[0].Threshold)

	assertBalanced(t, ledger, "gloves")
	assertBalanced(t, ledger, "serum")
}

func TestConsumeInsufficientStockLeavesStockUnchanged(t *testing.T) {
	ledger, store := newTestLedger(t)
	store.AddItem(Item{ID: "filler", Stock: 1}, "setup")
	store.LinkService(Usage{ServiceID: "lip", ItemID: "filler", Quantity: 2})

	_, err := ledger.Consume(context.Background(), "lip", "appt-1", "prac-1")
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, Shortage{ItemID: "filler", Available: 1, Required: 2}, stockErr.Shortages[0])

	item, _ := store.Item(context.Background(), "filler")
	assert.Equal(t, 1, item.Stock)
	movements, _ := store.Movements(context.Background(), "filler")
	assert.Len(t, movements, 1, "only the opening balance")
}

func TestConsumeIsAllOrNothingAcrossItems(t *testing.T) {
	ledger, store := newTestLedger(t)
	store.AddItem(Item{ID: "a-needles", Stock: 5}, "setup")
	store.AddItem(Item{ID: "b-toxin", Stock: 1}, "setup")
	store.LinkService(Usage{ServiceID: "botox", ItemID: "a-needles", Quantity: 1})
	store.LinkService(Usage{ServiceID: "botox", ItemID: "b-toxin", Quantity: 2})

	_, err := ledger.Consume(context.Background(), "botox", "appt-1", "prac-1")
	require.ErrorIs(t, err, ErrInsufficientStock)

	needles, _ := store.Item(context.Background(), "a-needles")
	assert.Equal(t, 5, needles.Stock)
	assertBalanced(t, ledger, "a-needles")
	assertBalanced(t, ledger, "b-toxin")
}

func TestConsumeServiceWithoutUsageIsNoop(t *testing.T) {
	ledger, _ := newTestLedger(t)
	res, err := ledger.Consume(context.Background(), "consult", "appt-1", "prac-1")
	require.NoError(t, err)
	assert.Empty(t, res.Movements)
}

func TestConcurrentConsumersNeverOversell(t *testing.T) {
	ledger, store := newTestLedger(t)
	store.AddItem(Item{ID: "syringe", Stock: 10}, "setup")
	store.LinkService(Usage{ServiceID: "inject", ItemID: "syringe", Quantity: 1})
	store.LinkService(Usage{ServiceID: "inject-touchup", ItemID: "syringe", Quantity: 1})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		svc := "inject"
		if i%2 == 0 {
			svc = "inject-touchup"
		}
		go func() {
			defer wg.Done()
			_, err := ledger.Consume(context.Background(), svc, "appt", "prac")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 20, short)
	item, _ := store.Item(context.Background(), "syringe")
	assert.Equal(t, 0, item.Stock)
	assertBalanced(t, ledger, "syringe")
}

func TestAdjust(t *testing.T) {
	ledger, store := newTestLedger(t)
	store.AddItem(Item{ID: "gauze", Stock: 3, MinStock: 5}, "setup")

	m, alert, err := ledger.Adjust(context.Background(), "gauze", 10, ReasonRestock, "admin")
	require.NoError(t, err)
	assert.Equal(t, 10, m.Delta)
	assert.Nil(t, alert)

	_, alert, err = ledger.Adjust(context.Background(), "gauze", -9, ReasonWriteOff, "admin")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, 4, alert.Stock)

	_, _, err = ledger.Adjust(context.Background(), "gauze", -5, ReasonWriteOff, "admin")
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, _, err = ledger.Adjust(context.Background(), "gauze", 0, ReasonCorrection, "admin")
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	_, _, err = ledger.Adjust(context.Background(), "gauze", 1, ReasonServiceConsumption, "admin")
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	_, _, err = ledger.Adjust(context.Background(), "missing", 1, ReasonRestock, "admin")
	require.ErrorIs(t, err, ErrItemNotFound)

	movements, err := ledger.Movements(context.Background(), "gauze")
	require.NoError(t, err)
	assert.Len(t, movements, 3)
	assertBalanced(t, ledger, "gauze")
}

func TestMovementsUnknownItem(t *testing.T) {
	ledger, _ := newTestLedger(t)
	_, err := ledger.Movements(context.Background(), "nope")
	require.ErrorIs(t, err, ErrItemNotFound)
}
