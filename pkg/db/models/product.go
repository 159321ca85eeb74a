package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is owned by the catalog service; read for price and vendor lookups.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID     uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name         string          `gorm:"column:name;type:text;not null"`
	SellingPrice decimal.Decimal `gorm:"column:selling_price;type:numeric(10,2);not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
