package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/teamnishkar/nishkar-backend/pkg/enums"
)

// User is owned by the identity service; this service reads it for
// notification targeting and ownership checks.
type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email     string          `gorm:"column:email;type:text;not null"`
	FullName  string          `gorm:"column:full_name;type:text;not null"`
	Role      enums.ActorRole `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
