package roles

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
)

// Repository handles role persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to role operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a role by its upper-cased id.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// List returns every role ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).Order("id asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// Create persists a new role row.
func (r *Repository) Create(ctx context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	return r.db.WithContext(ctx).Create(role).Error
}

// CreateIfMissing inserts the role only when the id is absent.
func (r *Repository) CreateIfMissing(ctx context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(role).Error
}

// Update saves the provided role.
func (r *Repository) Update(ctx context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	return r.db.WithContext(ctx).Save(role).Error
}

// Delete removes the role row. Missing ids are a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Role{}).Error
}
