package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the identity provider's subject. The row is created
// lazily on the first authenticated request; no credentials are stored.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"column:username;not null;uniqueIndex"`
	Name      *string   `gorm:"column:name"`
	Email     *string   `gorm:"column:email"`
	RoleHint  *string   `gorm:"column:role_hint"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
