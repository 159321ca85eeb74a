package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/enums"
)

// Order is the buyer-facing aggregate keyed by its public tracking code.
type Order struct {
	OrderID          string            `gorm:"column:order_id;type:text;primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	AddressID        *uuid.UUID        `gorm:"column:address_id;type:uuid"`
	CouponID         *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	OrderDate        time.Time         `gorm:"column:order_date;not null"`
	Currency         enums.Currency    `gorm:"column:currency;type:text;not null;default:'INR'"`
	CGST             decimal.Decimal   `gorm:"column:cgst;type:numeric(10,2);not null"`
	SGST             decimal.Decimal   `gorm:"column:sgst;type:numeric(10,2);not null"`
	IGST             decimal.Decimal   `gorm:"column:igst;type:numeric(10,2);not null"`
	Subtotal         decimal.Decimal   `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DiscountValue    decimal.Decimal   `gorm:"column:discount_value;type:numeric(10,2);not null"`
	DiscountedAmount decimal.Decimal   `gorm:"column:discounted_amount;type:numeric(10,2);not null"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	TaxReviewNeeded  bool              `gorm:"column:tax_review_needed;not null;default:false"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'placed'"`
	PlacedAt         *time.Time        `gorm:"column:placed_at"`
	ProcessingAt     *time.Time        `gorm:"column:processing_at"`
	ShippedAt        *time.Time        `gorm:"column:shipped_at"`
	OutForDeliveryAt *time.Time        `gorm:"column:out_for_delivery_at"`
	DeliveredAt      *time.Time        `gorm:"column:delivered_at"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;references:OrderID"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt        gorm.DeletedAt    `gorm:"column:deleted_at;index"`
}
