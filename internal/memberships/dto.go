package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
)

// MembershipDTO is the transport shape for a raw membership record.
type MembershipDTO struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"team_id"`
	UserID    uuid.UUID `json:"user_id"`
	RoleID    string    `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MembershipWithTeam includes basic team metadata + membership info.
type MembershipWithTeam struct {
	MembershipID uuid.UUID `json:"membership_id"`
	TeamID       uuid.UUID `json:"team_id"`
	UserID       uuid.UUID `json:"user_id"`
	TeamName     string    `json:"team_name"`
	RoleID       string    `json:"role_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TeamMemberDTO mixes membership metadata with the associated user profile.
type TeamMemberDTO struct {
	MembershipID uuid.UUID `json:"membership_id"`
	TeamID       uuid.UUID `json:"team_id"`
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	Name         *string   `json:"name,omitempty"`
	Email        *string   `json:"email,omitempty"`
	RoleID       string    `json:"role_id"`
	Permissions  []string  `json:"permissions,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.TeamMembership) *MembershipDTO {
	if m == nil {
		return nil
	}
	return &MembershipDTO{
		ID:        m.ID,
		TeamID:    m.TeamID,
		UserID:    m.UserID,
		RoleID:    m.RoleID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
