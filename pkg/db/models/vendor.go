package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is owned by the catalog service; State is the tax region used by
// the GST resolver.
type Vendor struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	ShopName  string    `gorm:"column:shop_name;type:text;not null"`
	Email     string    `gorm:"column:email;type:text;not null"`
	State     string    `gorm:"column:state;type:text;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
