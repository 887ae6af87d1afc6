package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemUpdateLog records who touched an item and how. The newest entry
// per item doubles as the "last reviewed by" marker.
type ItemUpdateLog struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID   uuid.UUID `gorm:"column:item_id;type:uuid;not null;index"`
	TeamID   uuid.UUID `gorm:"column:team_id;type:uuid;not null;index"`
	UserID   uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	UserName string    `gorm:"column:user_name;not null"`
	Action   string    `gorm:"column:action;not null"`
	At       time.Time `gorm:"column:at;autoCreateTime"`
}
