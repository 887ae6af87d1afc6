package models

import (
	"time"

	"github.com/lib/pq"
)

// Role is a named permission bundle. The ID is the upper-cased trimmed
// role name; default roles are seeded at startup and never rewritten.
type Role struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	Permissions pq.StringArray `gorm:"column:permissions;type:text[];not null"`
	IsDefault   bool           `gorm:"column:is_default;not null;default:false"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
