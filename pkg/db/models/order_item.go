package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/enums"
)

// OrderItem snapshots one product line at checkout time. The order FK is
// nullable so buyer order retirement never cascades into vendor history.
type OrderItem struct {
	ID               int64              `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID          *string            `gorm:"column:order_id;type:text;index"`
	ProductID        uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	VendorID         uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	ProductName      string             `gorm:"column:product_name;type:text;not null"`
	Size             *string            `gorm:"column:size;type:text"`
	Quantity         int                `gorm:"column:quantity;not null"`
	UnitPrice        decimal.Decimal    `gorm:"column:unit_price;type:numeric(10,2);not null"`
	CGST             decimal.Decimal    `gorm:"column:cgst;type:numeric(10,2);not null"`
	SGST             decimal.Decimal    `gorm:"column:sgst;type:numeric(10,2);not null"`
	IGST             decimal.Decimal    `gorm:"column:igst;type:numeric(10,2);not null"`
	SubTotal         decimal.Decimal    `gorm:"column:sub_total;type:numeric(10,2);not null"`
	TotalPrice       decimal.Decimal    `gorm:"column:total_price;type:numeric(10,2);not null"`
	VendorStatus     enums.VendorStatus `gorm:"column:vendor_status;type:text;not null;default:'received'"`
	ReceivedAt       *time.Time         `gorm:"column:received_at"`
	ProcessingAt     *time.Time         `gorm:"column:processing_at"`
	ShippedAt        *time.Time         `gorm:"column:shipped_at"`
	OutForDeliveryAt *time.Time         `gorm:"column:out_for_delivery_at"`
	DeliveredAt      *time.Time         `gorm:"column:delivered_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt        gorm.DeletedAt     `gorm:"column:deleted_at;index"`
}
