package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teamnishkar/nishkar-backend/pkg/enums"
)

// AdminOrderFilters describe the inputs supported by the admin orders list.
type AdminOrderFilters struct {
	Status   *enums.OrderStatus
	UserID   *uuid.UUID
	DateFrom *time.Time
	DateTo   *time.Time
}

// ItemView exposes one order line with its fulfillment trail.
type ItemView struct {
	ID               int64              `json:"id"`
	ProductID        uuid.UUID          `json:"product_id"`
	VendorID         uuid.UUID          `json:"vendor_id"`
	ProductName      string             `json:"product_name"`
	Size             *string            `json:"size,omitempty"`
	Quantity         int                `json:"quantity"`
	UnitPrice        decimal.Decimal    `json:"unit_price"`
	SubTotal         decimal.Decimal    `json:"sub_total"`
	TotalPrice       decimal.Decimal    `json:"total_price"`
	VendorStatus     enums.VendorStatus `json:"vendor_status"`
	ReceivedAt       *time.Time         `json:"received_at,omitempty"`
	ProcessingAt     *time.Time         `json:"processing_at,omitempty"`
	ShippedAt        *time.Time         `json:"shipped_at,omitempty"`
	OutForDeliveryAt *time.Time         `json:"out_for_delivery_at,omitempty"`
	DeliveredAt      *time.Time         `json:"delivered_at,omitempty"`
}

// OrderSummary is the compact row returned by list endpoints.
type OrderSummary struct {
	OrderID     string            `json:"order_id"`
	OrderDate   time.Time         `json:"order_date"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	ItemCount   int               `json:"item_count"`
	CreatedAt   time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is the full buyer/admin view of one order.
type OrderDetail struct {
	OrderID          string            `json:"order_id"`
	UserID           uuid.UUID         `json:"user_id"`
	OrderDate        time.Time         `json:"order_date"`
	Currency         enums.Currency    `json:"currency"`
	CGST             decimal.Decimal   `json:"cgst"`
	SGST             decimal.Decimal   `json:"sgst"`
	IGST             decimal.Decimal   `json:"igst"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	DiscountValue    decimal.Decimal   `json:"discount_value"`
	DiscountedAmount decimal.Decimal   `json:"discounted_amount"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	Status           enums.OrderStatus `json:"status"`
	Timeline         StatusTimeline    `json:"timeline"`
	Items            []ItemView        `json:"items"`
}

// StatusTimeline carries the stage timestamps stamped by the state machine.
type StatusTimeline struct {
	PlacedAt         *time.Time `json:"placed_at,omitempty"`
	ProcessingAt     *time.Time `json:"processing_at,omitempty"`
	ShippedAt        *time.Time `json:"shipped_at,omitempty"`
	OutForDeliveryAt *time.Time `json:"out_for_delivery_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
}

// OrderStatusView answers the buyer/admin status query.
type OrderStatusView struct {
	OrderID  string            `json:"order_id"`
	Status   enums.OrderStatus `json:"status"`
	Timeline StatusTimeline    `json:"timeline"`
}

// VendorOrderView is the vendor's slice of one order: only their items.
type VendorOrderView struct {
	OrderID   string     `json:"order_id"`
	OrderDate time.Time  `json:"order_date"`
	Items     []ItemView `json:"items"`
}

// VendorOrderList wraps paginated vendor order slices.
type VendorOrderList struct {
	Orders     []VendorOrderView `json:"orders"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ItemStatusView answers the vendor item status query.
type ItemStatusView struct {
	ItemID           int64              `json:"item_id"`
	OrderID          *string            `json:"order_id,omitempty"`
	VendorStatus     enums.VendorStatus `json:"vendor_status"`
	ReceivedAt       *time.Time         `json:"received_at,omitempty"`
	ProcessingAt     *time.Time         `json:"processing_at,omitempty"`
	ShippedAt        *time.Time         `json:"shipped_at,omitempty"`
	OutForDeliveryAt *time.Time         `json:"out_for_delivery_at,omitempty"`
	DeliveredAt      *time.Time         `json:"delivered_at,omitempty"`
}
