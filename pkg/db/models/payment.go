package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teamnishkar/nishkar-backend/pkg/enums"
)

// Payment captures a settled gateway transaction for an order.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     string              `gorm:"column:order_id;type:text;not null;index"`
	ProviderRef string              `gorm:"column:provider_ref;type:text;not null;uniqueIndex:uniq_payments_provider_ref"`
	Method      string              `gorm:"column:method;type:text;not null;default:'card'"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:text;not null;default:'INR'"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'unpaid'"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
