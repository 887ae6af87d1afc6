package roles

import (
	"time"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
)

// RoleDTO exposes role data in API responses.
type RoleDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromModel maps the persisted role into a DTO.
func FromModel(m *models.Role) *RoleDTO {
	if m == nil {
		return nil
	}
	perms := make([]string, len(m.Permissions))
	copy(perms, m.Permissions)
	return &RoleDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Permissions: perms,
		IsDefault:   m.IsDefault,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
