package memberships

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
)

// Repository exposes membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetMembership retrieves a membership by user and team.
func (r *Repository) GetMembership(ctx context.Context, userID, teamID uuid.UUID) (*models.TeamMembership, error) {
	var membership models.TeamMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// CreateMembership persists a new membership record.
func (r *Repository) CreateMembership(ctx context.Context, teamID, userID uuid.UUID, roleID string) (*models.TeamMembership, error) {
	membership := &models.TeamMembership{
		TeamID: teamID,
		UserID: userID,
		RoleID: roleID,
	}
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// CreateMembershipWithTx persists a membership inside the provided transaction.
func (r *Repository) CreateMembershipWithTx(tx *gorm.DB, teamID, userID uuid.UUID, roleID string) (*models.TeamMembership, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	membership := &models.TeamMembership{
		TeamID: teamID,
		UserID: userID,
		RoleID: roleID,
	}
	if err := tx.Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// UpdateMembershipRole changes the role a member holds on a team.
func (r *Repository) UpdateMembershipRole(ctx context.Context, teamID, userID uuid.UUID, roleID string) error {
	return r.db.WithContext(ctx).
		Model(&models.TeamMembership{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role_id", roleID).Error
}

// DeleteMembership removes a single membership row.
func (r *Repository) DeleteMembership(ctx context.Context, teamID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMembership{}).Error
}

// DeleteTeamMemberships removes every membership for the team.
func (r *Repository) DeleteTeamMemberships(ctx context.Context, teamID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Delete(&models.TeamMembership{}).Error
}

// DeleteUserMemberships removes the user from every team.
func (r *Repository) DeleteUserMemberships(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.TeamMembership{}).Error
}

// ListUserTeamIDs returns the ids of every team the user belongs to.
func (r *Repository) ListUserTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.TeamMembership{}).
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListUserTeams returns the teams a user belongs to along with membership metadata.
func (r *Repository) ListUserTeams(ctx context.Context, userID uuid.UUID) ([]MembershipWithTeam, error) {
	var rows []membershipWithTeamRow
	err := r.db.WithContext(ctx).
		Model(&models.TeamMembership{}).
		Select("team_memberships.*, teams.name AS team_name").
		Joins("JOIN teams ON teams.id = team_memberships.team_id").
		Where("team_memberships.user_id = ?", userID).
		Order("teams.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return membershipRowsToDTO(rows), nil
}

// ListTeamMembers returns memberships for the team along with user metadata.
func (r *Repository) ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]TeamMemberDTO, error) {
	var rows []teamMemberRow
	err := r.db.WithContext(ctx).
		Model(&models.TeamMembership{}).
		Select("team_memberships.*, users.username, users.name AS user_name, users.email").
		Joins("JOIN users ON users.id = team_memberships.user_id").
		Where("team_memberships.team_id = ?", teamID).
		Order("team_memberships.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return teamMembersFromRows(rows), nil
}

// CountMembers returns how many members the team has.
func (r *Repository) CountMembers(ctx context.Context, teamID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TeamMembership{}).
		Where("team_id = ?", teamID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
