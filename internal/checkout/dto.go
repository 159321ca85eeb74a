package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teamnishkar/nishkar-backend/pkg/enums"
)

// OrderNowInput is the direct checkout request.
type OrderNowInput struct {
	AddressID  uuid.UUID `json:"address_id" validate:"required"`
	CouponCode *string   `json:"coupon_code,omitempty"`
}

// SessionInput is the deferred checkout request.
type SessionInput struct {
	AddressID  uuid.UUID `json:"address_id" validate:"required"`
	CouponCode *string   `json:"coupon_code,omitempty"`
}

// OrderReceipt summarizes the order created by direct checkout.
type OrderReceipt struct {
	OrderID          string            `json:"order_id"`
	Status           enums.OrderStatus `json:"status"`
	Currency         enums.Currency    `json:"currency"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	DiscountValue    decimal.Decimal   `json:"discount_value"`
	DiscountedAmount decimal.Decimal   `json:"discounted_amount"`
	CGST             decimal.Decimal   `json:"cgst"`
	SGST             decimal.Decimal   `json:"sgst"`
	IGST             decimal.Decimal   `json:"igst"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	TaxReviewNeeded  bool              `json:"tax_review_needed"`
	ItemCount        int               `json:"item_count"`
}

// SessionResult carries the gateway handle for a deferred checkout.
type SessionResult struct {
	SessionID    string `json:"session_id"`
	SessionURL   string `json:"session_url,omitempty"`
	TrackingCode string `json:"tracking_code"`
}
