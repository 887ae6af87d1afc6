package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

type roleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	CreateIfMissing(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id string) error
}

type membershipsRepository interface {
	GetMembership(ctx context.Context, userID, teamID uuid.UUID) (*models.TeamMembership, error)
}

// Decision is the outcome of a permission check. Reason is set when the
// check is denied so callers can log or surface it.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Authorizer is the surface other services use for permission checks.
type Authorizer interface {
	Authorize(ctx context.Context, userID, teamID uuid.UUID, permission string) (Decision, error)
}

// Service exposes the role registry operations.
type Service interface {
	Authorizer
	Seed(ctx context.Context) error
	Get(ctx context.Context, id string) (*RoleDTO, error)
	List(ctx context.Context) ([]RoleDTO, error)
	Create(ctx context.Context, input CreateRoleInput) (*RoleDTO, error)
	Update(ctx context.Context, id string, input UpdateRoleInput) (*RoleDTO, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo        roleRepository
	memberships membershipsRepository
}

// NewService builds the roles service with the provided repositories.
func NewService(repo roleRepository, memberships membershipsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("role repository required")
	}
	if memberships == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	return &service{repo: repo, memberships: memberships}, nil
}

// CreateRoleInput captures the data for a new custom role.
type CreateRoleInput struct {
	Name        string
	Description *string
	Permissions []string
}

// UpdateRoleInput captures the mutable fields of a custom role.
type UpdateRoleInput struct {
	Description *string
	Permissions *[]string
}

// RoleID normalizes a role name into its registry id.
func RoleID(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (s *service) Seed(ctx context.Context) error {
	for _, def := range DefaultRoles {
		desc := def.Description
		role := &models.Role{
			ID:          RoleID(def.Name),
			Name:        def.Name,
			Description: &desc,
			Permissions: pq.StringArray(def.Permissions),
			IsDefault:   true,
		}
		if err := s.repo.CreateIfMissing(ctx, role); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed role "+role.ID)
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*RoleDTO, error) {
	role, err := s.repo.FindByID(ctx, RoleID(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "role not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load role")
	}
	return FromModel(role), nil
}

func (s *service) List(ctx context.Context) ([]RoleDTO, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list roles")
	}
	dtos := make([]RoleDTO, 0, len(roles))
	for i := range roles {
		dtos = append(dtos, *FromModel(&roles[i]))
	}
	return dtos, nil
}

func (s *service) Create(ctx context.Context, input CreateRoleInput) (*RoleDTO, error) {
	id := RoleID(input.Name)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role name is required")
	}

	if _, err := s.repo.FindByID(ctx, id); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "role already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check role")
	}

	role := &models.Role{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Permissions: pq.StringArray(input.Permissions),
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create role")
	}
	return FromModel(role), nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateRoleInput) (*RoleDTO, error) {
	role, err := s.repo.FindByID(ctx, RoleID(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "role not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load role")
	}
	if role.IsDefault {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default roles cannot be modified")
	}

	if input.Description != nil {
		role.Description = input.Description
	}
	if input.Permissions != nil {
		role.Permissions = pq.StringArray(*input.Permissions)
	}

	if err := s.repo.Update(ctx, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	return FromModel(role), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	role, err := s.repo.FindByID(ctx, RoleID(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// delete is idempotent
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load role")
	}
	if role.IsDefault {
		return pkgerrors.New(pkgerrors.CodeValidation, "default roles cannot be deleted")
	}
	if err := s.repo.Delete(ctx, role.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete role")
	}
	return nil
}

func (s *service) Authorize(ctx context.Context, userID, teamID uuid.UUID, permission string) (Decision, error) {
	membership, err := s.memberships.GetMembership(ctx, userID, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Decision{Allowed: false, Reason: "not a member of this team"}, nil
		}
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}

	role, err := s.repo.FindByID(ctx, membership.RoleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Decision{Allowed: false, Reason: "role " + membership.RoleID + " not found"}, nil
		}
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load role")
	}

	for _, perm := range role.Permissions {
		if perm == permission {
			return Decision{Allowed: true}, nil
		}
	}
	return Decision{Allowed: false, Reason: "missing permission " + permission}, nil
}
