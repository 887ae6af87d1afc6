package teams

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
)

// Repository handles team persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to team operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside a database transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// CreateWithTx persists a team inside the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, team *models.Team) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(team).Error
}

// FindByID loads a team by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// FindByIDs loads the given teams in one query.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Team, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var teams []models.Team
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// FindByNameLower loads a team by its lowered name.
func (r *Repository) FindByNameLower(ctx context.Context, nameLower string) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("name_lower = ?", nameLower).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// Update saves the team row.
func (r *Repository) Update(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Save(team).Error
}

// Delete removes the team row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Team{}).Error
}
