package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamMembership links a user with a team and the role they hold there.
// RoleID references the roles registry (upper-cased role name).
type TeamMembership struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TeamID    uuid.UUID `gorm:"column:team_id;type:uuid;not null;uniqueIndex:idx_team_memberships_team_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_team_memberships_team_user;index"`
	RoleID    string    `gorm:"column:role_id;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
