package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/medspa-practice/internal/inventory"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

// LowStockMailer emails a stock alert to the practice. Without a recipient it only logs.
type LowStockMailer struct {
	email     EmailSender
	recipient string
	practice  string
	logger    *logging.Logger
}

func NewLowStockMailer(email EmailSender, recipient, practice string, logger *logging.Logger) *LowStockMailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &LowStockMailer{email: email, recipient: strings.TrimSpace(recipient), practice: practice, logger: logger}
}

// AlertLowStock sends one email listing every item at or below its threshold.
func (m *LowStockMailer) AlertLowStock(ctx context.Context, alerts []inventory.LowStockAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	for _, a := range alerts {
		m.logger.Warn("inventory low", "item_id", a.ItemID, "stock", a.Stock, "threshold", a.Threshold)
	}
	if m.email == nil || m.recipient == "" {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The following items at %s are at or below their minimum stock:\n\n", m.practice)
	for _, a := range alerts {
		name := a.Name
		if name == "" {
			name = a.ItemID
		}
		fmt.Fprintf(&b, "- %s: %d left (minimum %d)\n", name, a.Stock, a.Threshold)
	}
	msg := EmailMessage{
		To:       m.recipient,
		Subject:  fmt.Sprintf("%s: low stock on %d item(s)", m.practice, len(alerts)),
		Body:     b.String(),
		Category: CategoryLowStock,
	}
	if err := m.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: low stock email: %w", err)
	}
	return nil
}
