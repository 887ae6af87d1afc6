package items

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	"github.com/quartermasterhq/quartermaster-backend/pkg/enums"
	"github.com/quartermasterhq/quartermaster-backend/pkg/pagination"
)

// Repository handles inventory item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to item operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new item row.
func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByTeamAndID loads one item scoped to a team.
func (r *Repository) FindByTeamAndID(ctx context.Context, teamID, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).
		Where("team_id = ? AND id = ?", teamID, id).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByID loads one item by id regardless of team. Used for parent
// lookups where the team check happens in the service.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Update saves the item row.
func (r *Repository) Update(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteByIDs removes the given item rows.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Item{}).Error
}

// DeleteTeamItems removes every item belonging to the team.
func (r *Repository) DeleteTeamItems(ctx context.Context, teamID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("team_id = ?", teamID).Delete(&models.Item{}).Error
}

// ListByTeam returns one keyset page ordered newest-first.
func (r *Repository) ListByTeam(ctx context.Context, teamID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Item, error) {
	query := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		// The id tiebreaker compares uuids as text on both drivers.
		// That ordering is arbitrary but stable, which is all a page
		// boundary between equal timestamps needs.
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var items []models.Item
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListAllByTeam returns every team item, oldest-first, for tree builds
// and exports.
func (r *Repository) ListAllByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListByParents fetches the direct children of the given parents.
func (r *Repository) ListByParents(ctx context.Context, parentIDs []uuid.UUID) ([]models.Item, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CountByStatus groups the team's items by status.
func (r *Repository) CountByStatus(ctx context.Context, teamID uuid.UUID) (map[enums.ItemStatus]int64, error) {
	var rows []struct {
		Status enums.ItemStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select("status, COUNT(*) AS count").
		Where("team_id = ?", teamID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[enums.ItemStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CreatorStatusCount is one (creator, status) bucket for the dashboard.
type CreatorStatusCount struct {
	CreatedBy uuid.UUID
	Status    enums.ItemStatus
	Count     int64
}

// CountByCreatorAndStatus groups the team's items by creator and status.
func (r *Repository) CountByCreatorAndStatus(ctx context.Context, teamID uuid.UUID) ([]CreatorStatusCount, error) {
	var rows []CreatorStatusCount
	if err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select("created_by, status, COUNT(*) AS count").
		Where("team_id = ?", teamID).
		Group("created_by, status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// NSNExists reports whether another non-kit item in the team already
// carries this NSN (trimmed, case-insensitive).
func (r *Repository) NSNExists(ctx context.Context, teamID uuid.UUID, nsn string, excludeID *uuid.UUID) (bool, error) {
	return r.identifierExists(ctx, teamID, "nsn", nsn, false, excludeID)
}

// EndItemNIINExists reports whether another kit in the team already
// carries this end-item NIIN (trimmed, case-insensitive).
func (r *Repository) EndItemNIINExists(ctx context.Context, teamID uuid.UUID, niin string, excludeID *uuid.UUID) (bool, error) {
	return r.identifierExists(ctx, teamID, "end_item_niin", niin, true, excludeID)
}

func (r *Repository) identifierExists(ctx context.Context, teamID uuid.UUID, column, value string, isKit bool, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("team_id = ? AND is_kit = ?", teamID, isKit).
		Where("LOWER(TRIM("+column+")) = ?", strings.ToLower(strings.TrimSpace(value)))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SearchByNSN finds non-kit items whose NSN contains the query, across
// the provided teams. LOWER+LIKE keeps the match case-insensitive on
// both postgres and sqlite.
func (r *Repository) SearchByNSN(ctx context.Context, teamIDs []uuid.UUID, query string) ([]models.Item, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("team_id IN ? AND is_kit = false", teamIDs).
		Where("LOWER(nsn) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(query))+"%").
		Order("nsn ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ResetStatuses flips every item in the team back to the given status.
func (r *Repository) ResetStatuses(ctx context.Context, teamID uuid.UUID, status enums.ItemStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("team_id = ?", teamID).
		Update("status", status).Error
}

// CreateLog appends an item update-log entry.
func (r *Repository) CreateLog(ctx context.Context, entry *models.ItemUpdateLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// LatestLog returns the most recent update-log entry for an item.
func (r *Repository) LatestLog(ctx context.Context, itemID uuid.UUID) (*models.ItemUpdateLog, error) {
	var entry models.ItemUpdateLog
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("at DESC").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteItemLogs removes log entries for the given items.
func (r *Repository) DeleteItemLogs(ctx context.Context, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("item_id IN ?", itemIDs).Delete(&models.ItemUpdateLog{}).Error
}

// DeleteTeamLogs removes every log entry for the team.
func (r *Repository) DeleteTeamLogs(ctx context.Context, teamID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("team_id = ?", teamID).Delete(&models.ItemUpdateLog{}).Error
}
