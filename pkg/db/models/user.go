package models

import (
	"time"

	"github.com/courierloop/courierloop-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the slice of the identity directory the tracking service reads.
// Account management lives elsewhere; this service only reads these rows.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Phone     *string        `gorm:"column:phone" json:"phone,omitempty"`
	Role      enums.UserRole `gorm:"column:role;not null" json:"role"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the id when the caller did not.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
