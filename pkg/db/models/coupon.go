package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teamnishkar/nishkar-backend/pkg/enums"
)

// Coupon is a redeemable discount with a bounded redemption budget.
type Coupon struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string           `gorm:"column:code;type:text;not null;uniqueIndex:uniq_coupons_code"`
	DiscountType enums.CouponType `gorm:"column:discount_type;type:text;not null"`
	Value        decimal.Decimal  `gorm:"column:value;type:numeric(10,2);not null"`
	MaximumUses  int              `gorm:"column:maximum_uses;not null"`
	UsedCount    int              `gorm:"column:used_count;not null;default:0"`
	ExpiresAt    *time.Time       `gorm:"column:expires_at"`
	Active       bool             `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Exhausted reports whether the redemption budget is spent.
func (c Coupon) Exhausted() bool {
	return c.MaximumUses > 0 && c.UsedCount >= c.MaximumUses
}

// Expired reports whether the coupon lapsed before now.
func (c Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
