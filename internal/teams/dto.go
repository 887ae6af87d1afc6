package teams

import (
	"time"

	"github.com/google/uuid"

	"github.com/quartermasterhq/quartermaster-backend/internal/items"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
)

// TeamDTO is the transport shape for a team record.
type TeamDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	UIC         *string   `json:"uic,omitempty"`
	FE          *string   `json:"fe,omitempty"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamSummaryDTO is one row in a user's team list, enriched with
// review progress.
type TeamSummaryDTO struct {
	TeamDTO
	RoleID          string       `json:"role_id"`
	Totals          items.Totals `json:"totals"`
	PercentReviewed int          `json:"percent_reviewed"`
}

// TeamDetailDTO is the single-team read shape.
type TeamDetailDTO struct {
	TeamDTO
	RoleID          string       `json:"role_id"`
	MemberCount     int64        `json:"member_count"`
	Totals          items.Totals `json:"totals"`
	PercentReviewed int          `json:"percent_reviewed"`
}

// CreateTeamInput carries the fields accepted when opening a teamspace.
type CreateTeamInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	UIC         *string `json:"uic"`
	FE          *string `json:"fe"`
}

// UpdateTeamInput is a partial patch; nil fields are left untouched.
type UpdateTeamInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	UIC         *string `json:"uic"`
	FE          *string `json:"fe"`
}

// FromModel converts a persisted team into its DTO.
func FromModel(m *models.Team) *TeamDTO {
	if m == nil {
		return nil
	}
	return &TeamDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		UIC:         m.UIC,
		FE:          m.FE,
		OwnerID:     m.OwnerID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
