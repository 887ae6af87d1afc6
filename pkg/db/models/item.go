package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/quartermasterhq/quartermaster-backend/pkg/enums"
)

// Item is a single inventory record. Kits are items with IsKit set;
// their components reference them through ParentID, forming a forest
// scoped to one team. ParentID is nil for top-level items.
type Item struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TeamID        uuid.UUID        `gorm:"column:team_id;type:uuid;not null;index"`
	ProductName   string           `gorm:"column:product_name;not null"`
	ActualName    *string          `gorm:"column:actual_name"`
	NSN           *string          `gorm:"column:nsn;index"`
	LIIN          *string          `gorm:"column:liin"`
	EndItemNIIN   *string          `gorm:"column:end_item_niin"`
	SerialNumber  *string          `gorm:"column:serial_number"`
	Quantity      int              `gorm:"column:quantity;not null;default:0"`
	AuthQuantity  int              `gorm:"column:auth_quantity;not null;default:0"`
	Description   *string          `gorm:"column:description"`
	Status        enums.ItemStatus `gorm:"column:status;not null;default:'Incomplete'"`
	ParentID      *uuid.UUID       `gorm:"column:parent_id;type:uuid;index"`
	IsKit         bool             `gorm:"column:is_kit;not null;default:false"`
	ImageKey      *string          `gorm:"column:image_key"`
	DamageReports pq.StringArray   `gorm:"column:damage_reports;type:text[]"`
	CreatedBy     uuid.UUID        `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
