package appointment

// WarningKind classifies a non-fatal problem reported next to a successful result.
type WarningKind string

const (
	WarningNotification      WarningKind = "notification_failed"
	WarningInsufficientStock WarningKind = "insufficient_stock"
	WarningInventory         WarningKind = "inventory_failed"
	WarningLowStock          WarningKind = "low_stock"
	WarningReminder          WarningKind = "reminder_failed"
)

// Warning tells the caller the operation succeeded but a downstream step did not.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Channel   string      `json:"channel,omitempty"`
	ServiceID string      `json:"service_id,omitempty"`
	ItemID    string      `json:"item_id,omitempty"`
	Detail    string      `json:"detail"`
}
