package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingCheckout reserves a tracking code for a deferred checkout session.
// ConsumedAt flips exactly once when the gateway confirms payment; the claim
// is a guarded UPDATE inside the same transaction that inserts the order.
type PendingCheckout struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    string     `gorm:"column:order_id;type:text;not null;uniqueIndex:uniq_pending_checkouts_order"`
	SessionID  string     `gorm:"column:session_id;type:text;not null;uniqueIndex:uniq_pending_checkouts_session"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	AddressID  *uuid.UUID `gorm:"column:address_id;type:uuid"`
	CouponCode *string    `gorm:"column:coupon_code;type:text"`
	ConsumedAt *time.Time `gorm:"column:consumed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
