package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/teamnishkar/nishkar-backend/pkg/enums"
)

// Notification is one delivery task fanned out from an order event.
type Notification struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      string                   `gorm:"column:order_id;type:text;not null;index"`
	Kind         enums.NotificationKind   `gorm:"column:kind;type:text;not null"`
	Recipient    string                   `gorm:"column:recipient;type:text;not null"`
	Channels     pq.StringArray           `gorm:"column:channels;type:text[]"`
	Payload      json.RawMessage          `gorm:"column:payload;type:jsonb"`
	Status       enums.NotificationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AttemptCount int                      `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string                  `gorm:"column:last_error"`
	SentAt       *time.Time               `gorm:"column:sent_at"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
