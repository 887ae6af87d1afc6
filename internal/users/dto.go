package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
)

// UserDTO is the transport shape for a user profile.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      *string   `json:"name,omitempty"`
	Email     *string   `json:"email,omitempty"`
	RoleHint  *string   `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	ID       uuid.UUID
	Username string
	Name     *string
	Email    *string
	RoleHint *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		RoleHint:  u.RoleHint,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:       c.ID,
		Username: c.Username,
		Name:     c.Name,
		Email:    c.Email,
		RoleHint: c.RoleHint,
	}
}
