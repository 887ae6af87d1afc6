package models

import (
	"time"

	"github.com/google/uuid"
)

// Team represents the canonical tenant model: one teamspace owning a
// set of inventory items and memberships.
type Team struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	NameLower   string    `gorm:"column:name_lower;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	UIC         *string   `gorm:"column:uic"`
	FE          *string   `gorm:"column:fe"`
	OwnerID     uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
