package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent signals a confirmed order ready for notification fan-out.
type OrderPlacedEvent struct {
	OrderID     string          `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	VendorIDs   []uuid.UUID     `json:"vendor_ids"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// OrderDeliveredEvent is emitted once when every item of an order reaches delivered.
type OrderDeliveredEvent struct {
	OrderID     string      `json:"order_id"`
	UserID      uuid.UUID   `json:"user_id"`
	VendorIDs   []uuid.UUID `json:"vendor_ids"`
	DeliveredAt time.Time   `json:"delivered_at"`
}
