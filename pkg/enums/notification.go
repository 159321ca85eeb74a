package enums

// NotificationKind names the templated message a dispatch task renders.
type NotificationKind string

const (
	NotificationOrderPlacedBuyer     NotificationKind = "order_placed_buyer"
	NotificationOrderPlacedVendor    NotificationKind = "order_placed_vendor"
	NotificationOrderDeliveredBuyer  NotificationKind = "order_delivered_buyer"
	NotificationOrderDeliveredVendor NotificationKind = "order_delivered_vendor"
)

// NotificationStatus tracks delivery progress of a persisted task.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)
