package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/internal/media"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	"github.com/quartermasterhq/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
	"github.com/quartermasterhq/quartermaster-backend/pkg/pagination"
)

type itemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByTeamAndID(ctx context.Context, teamID, id uuid.UUID) (*models.Item, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
	DeleteTeamItems(ctx context.Context, teamID uuid.UUID) error
	ListByTeam(ctx context.Context, teamID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Item, error)
	ListAllByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Item, error)
	ListByParents(ctx context.Context, parentIDs []uuid.UUID) ([]models.Item, error)
	CountByStatus(ctx context.Context, teamID uuid.UUID) (map[enums.ItemStatus]int64, error)
	CountByCreatorAndStatus(ctx context.Context, teamID uuid.UUID) ([]CreatorStatusCount, error)
	NSNExists(ctx context.Context, teamID uuid.UUID, nsn string, excludeID *uuid.UUID) (bool, error)
	EndItemNIINExists(ctx context.Context, teamID uuid.UUID, niin string, excludeID *uuid.UUID) (bool, error)
	SearchByNSN(ctx context.Context, teamIDs []uuid.UUID, query string) ([]models.Item, error)
	ResetStatuses(ctx context.Context, teamID uuid.UUID, status enums.ItemStatus) error
	CreateLog(ctx context.Context, entry *models.ItemUpdateLog) error
	LatestLog(ctx context.Context, itemID uuid.UUID) (*models.ItemUpdateLog, error)
	DeleteItemLogs(ctx context.Context, itemIDs []uuid.UUID) error
	DeleteTeamLogs(ctx context.Context, teamID uuid.UUID) error
}

type membershipsRepository interface {
	ListUserTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type imageStore interface {
	Store(ctx context.Context, key, dataURL string) (*media.UploadResult, error)
}

type objectStore interface {
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Contribution is one member's share of the review work.
type Contribution struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Completed int64     `json:"completed"`
	Shortages int64     `json:"shortages"`
	Damaged   int64     `json:"damaged"`
	Total     int64     `json:"total"`
}

// SummaryDTO is the team dashboard payload.
type SummaryDTO struct {
	Totals          Totals         `json:"totals"`
	PercentReviewed int            `json:"percent_reviewed"`
	Contributions   []Contribution `json:"contributions"`
}

// Service exposes inventory item operations.
type Service interface {
	Create(ctx context.Context, actorID, teamID uuid.UUID, input CreateItemInput) (*ItemDTO, error)
	Get(ctx context.Context, actorID, teamID, itemID uuid.UUID) (*ItemDetailDTO, error)
	List(ctx context.Context, actorID, teamID uuid.UUID, params pagination.Params) (*Page, error)
	Tree(ctx context.Context, actorID, teamID uuid.UUID) ([]*Node, error)
	Update(ctx context.Context, actorID, teamID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Delete(ctx context.Context, actorID, teamID, itemID uuid.UUID) error
	AddDamageReport(ctx context.Context, actorID, teamID, itemID uuid.UUID, report string) (*ItemDTO, error)
	RemoveDamageReport(ctx context.Context, actorID, teamID, itemID uuid.UUID, index int) (*ItemDTO, error)
	SearchByNSN(ctx context.Context, actorID uuid.UUID, query string) ([]ItemDTO, error)
	HardReset(ctx context.Context, actorID, teamID uuid.UUID) error
	SoftReset(ctx context.Context, actorID, teamID uuid.UUID) error
	Summary(ctx context.Context, actorID, teamID uuid.UUID) (*SummaryDTO, error)
}

type service struct {
	repo        itemRepository
	memberships membershipsRepository
	users       userDirectory
	roles       roles.Authorizer
	media       imageStore
	store       objectStore
	presignTTL  time.Duration
}

// NewService builds the items service with the provided dependencies.
func NewService(repo itemRepository, memberships membershipsRepository, users userDirectory, authorizer roles.Authorizer, mediaSvc imageStore, store objectStore, presignTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if memberships == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer required")
	}
	if mediaSvc == nil {
		return nil, fmt.Errorf("media service required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &service{
		repo:        repo,
		memberships: memberships,
		users:       users,
		roles:       authorizer,
		media:       mediaSvc,
		store:       store,
		presignTTL:  presignTTL,
	}, nil
}

func (s *service) authorize(ctx context.Context, actorID, teamID uuid.UUID, permission string) error {
	decision, err := s.roles.Authorize(ctx, actorID, teamID, permission)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, decision.Reason)
	}
	return nil
}

func (s *service) Create(ctx context.Context, actorID, teamID uuid.UUID, input CreateItemInput) (*ItemDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemCreate); err != nil {
		return nil, err
	}

	productName := strings.TrimSpace(input.ProductName)
	if productName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Quantity < 0 || input.AuthQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities cannot be negative")
	}

	status := enums.ItemStatusIncomplete
	if input.Status != nil {
		parsed, err := enums.ParseItemStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		status = parsed
	}

	if err := s.checkIdentifierUnique(ctx, teamID, input.IsKit, input.NSN, input.EndItemNIIN, nil); err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		if err := s.checkParent(ctx, teamID, *input.ParentID, uuid.Nil); err != nil {
			return nil, err
		}
	}

	item := &models.Item{
		ID:            uuid.New(),
		TeamID:        teamID,
		ProductName:   productName,
		ActualName:    input.ActualName,
		NSN:           input.NSN,
		LIIN:          input.LIIN,
		EndItemNIIN:   input.EndItemNIIN,
		SerialNumber:  input.SerialNumber,
		Quantity:      input.Quantity,
		AuthQuantity:  input.AuthQuantity,
		Description:   input.Description,
		Status:        status,
		ParentID:      input.ParentID,
		IsKit:         input.IsKit,
		DamageReports: toStringArray(nil),
		CreatedBy:     actorID,
	}

	if input.ImageDataURL != nil && strings.TrimSpace(*input.ImageDataURL) != "" {
		key, err := s.storeItemImage(ctx, item, *input.ImageDataURL)
		if err != nil {
			return nil, err
		}
		item.ImageKey = &key
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	s.appendLog(ctx, item, actorID, "created")

	return FromModel(item), nil
}

func (s *service) Get(ctx context.Context, actorID, teamID, itemID uuid.UUID) (*ItemDetailDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemView); err != nil {
		return nil, err
	}

	item, err := s.loadItem(ctx, teamID, itemID)
	if err != nil {
		return nil, err
	}

	detail := &ItemDetailDTO{ItemDTO: *FromModel(item)}

	if item.ParentID != nil {
		if parent, err := s.repo.FindByID(ctx, *item.ParentID); err == nil {
			detail.ParentName = &parent.ProductName
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent item")
		}
	}

	if entry, err := s.repo.LatestLog(ctx, itemID); err == nil {
		detail.LastReviewedBy = &entry.UserName
		detail.LastReviewedAt = &entry.At
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load update log")
	}

	if item.ImageKey != nil {
		url, err := s.store.PresignGet(ctx, *item.ImageKey, s.presignTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign item image")
		}
		detail.ImageURL = &url
	}

	return detail, nil
}

func (s *service) List(ctx context.Context, actorID, teamID uuid.UUID, params pagination.Params) (*Page, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemView); err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListByTeam(ctx, teamID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}

	page := &Page{Children: make(map[uuid.UUID][]uuid.UUID)}
	if len(rows) > limit {
		last := rows[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}

	page.Items = make([]ItemDTO, 0, len(rows))
	for i := range rows {
		page.Items = append(page.Items, *FromModel(&rows[i]))
		if rows[i].ParentID != nil {
			page.Children[*rows[i].ParentID] = append(page.Children[*rows[i].ParentID], rows[i].ID)
		}
	}
	return page, nil
}

func (s *service) Tree(ctx context.Context, actorID, teamID uuid.UUID) ([]*Node, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemView); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListAllByTeam(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	dtos := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return BuildForest(dtos), nil
}

func (s *service) Update(ctx context.Context, actorID, teamID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemUpdate); err != nil {
		return nil, err
	}

	item, err := s.loadItem(ctx, teamID, itemID)
	if err != nil {
		return nil, err
	}

	if input.ProductName != nil {
		name := strings.TrimSpace(*input.ProductName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		item.ProductName = name
	}
	if input.ActualName != nil {
		item.ActualName = input.ActualName
	}
	if input.NSN != nil {
		item.NSN = input.NSN
	}
	if input.LIIN != nil {
		item.LIIN = input.LIIN
	}
	if input.EndItemNIIN != nil {
		item.EndItemNIIN = input.EndItemNIIN
	}
	if input.SerialNumber != nil {
		item.SerialNumber = input.SerialNumber
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities cannot be negative")
		}
		item.Quantity = *input.Quantity
	}
	if input.AuthQuantity != nil {
		if *input.AuthQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities cannot be negative")
		}
		item.AuthQuantity = *input.AuthQuantity
	}
	if input.Description != nil {
		item.Description = input.Description
	}
	if input.Status != nil {
		parsed, err := enums.ParseItemStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		item.Status = parsed
	}

	if input.NSN != nil || input.EndItemNIIN != nil {
		if err := s.checkIdentifierUnique(ctx, teamID, item.IsKit, item.NSN, item.EndItemNIIN, &item.ID); err != nil {
			return nil, err
		}
	}

	if input.ParentID != nil {
		if *input.ParentID == uuid.Nil {
			item.ParentID = nil
		} else {
			if err := s.checkParent(ctx, teamID, *input.ParentID, item.ID); err != nil {
				return nil, err
			}
			parentID := *input.ParentID
			item.ParentID = &parentID
		}
	}

	if input.ImageDataURL != nil && strings.TrimSpace(*input.ImageDataURL) != "" {
		oldKey := item.ImageKey
		key, err := s.storeItemImage(ctx, item, *input.ImageDataURL)
		if err != nil {
			return nil, err
		}
		item.ImageKey = &key
		if oldKey != nil && *oldKey != key {
			if err := s.store.Delete(ctx, *oldKey); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete replaced image")
			}
		}
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
	}
	s.appendLog(ctx, item, actorID, "updated")

	return FromModel(item), nil
}

func (s *service) Delete(ctx context.Context, actorID, teamID, itemID uuid.UUID) error {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemDelete); err != nil {
		return err
	}

	item, err := s.loadItem(ctx, teamID, itemID)
	if err != nil {
		return err
	}

	doomed := []models.Item{*item}
	if item.IsKit {
		descendants, err := s.collectDescendants(ctx, item.ID)
		if err != nil {
			return err
		}
		doomed = append(doomed, descendants...)
	}

	ids := make([]uuid.UUID, 0, len(doomed))
	for i := range doomed {
		ids = append(ids, doomed[i].ID)
	}

	if err := s.repo.DeleteItemLogs(ctx, ids); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item logs")
	}
	if err := s.repo.DeleteByIDs(ctx, ids); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete items")
	}

	var imageErr error
	for i := range doomed {
		if doomed[i].ImageKey == nil {
			continue
		}
		imageErr = multierr.Append(imageErr, s.store.Delete(ctx, *doomed[i].ImageKey))
	}
	if imageErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, imageErr, "delete item images")
	}
	return nil
}

func (s *service) AddDamageReport(ctx context.Context, actorID, teamID, itemID uuid.UUID, report string) (*ItemDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermReportsCreate); err != nil {
		return nil, err
	}

	report = strings.TrimSpace(report)
	if report == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "damage report text is required")
	}

	item, err := s.loadItem(ctx, teamID, itemID)
	if err != nil {
		return nil, err
	}

	item.DamageReports = append(item.DamageReports, report)
	item.Status = enums.ItemStatusDamaged

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
	}
	s.appendLog(ctx, item, actorID, "damage report added")

	return FromModel(item), nil
}

func (s *service) RemoveDamageReport(ctx context.Context, actorID, teamID, itemID uuid.UUID, index int) (*ItemDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermReportsDelete); err != nil {
		return nil, err
	}

	item, err := s.loadItem(ctx, teamID, itemID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(item.DamageReports) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "damage report index out of range")
	}

	item.DamageReports = append(item.DamageReports[:index], item.DamageReports[index+1:]...)
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
	}
	s.appendLog(ctx, item, actorID, "damage report removed")

	return FromModel(item), nil
}

func (s *service) SearchByNSN(ctx context.Context, actorID uuid.UUID, query string) ([]ItemDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}

	teamIDs, err := s.memberships.ListUserTeamIDs(ctx, actorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list actor teams")
	}

	rows, err := s.repo.SearchByNSN(ctx, teamIDs, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search items")
	}

	dtos := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) HardReset(ctx context.Context, actorID, teamID uuid.UUID) error {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemReset); err != nil {
		return err
	}

	if err := s.repo.DeleteTeamLogs(ctx, teamID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete team logs")
	}
	if err := s.repo.DeleteTeamItems(ctx, teamID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete team items")
	}
	if err := s.store.DeletePrefix(ctx, itemPrefix(teamID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item images")
	}
	return nil
}

func (s *service) SoftReset(ctx context.Context, actorID, teamID uuid.UUID) error {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemReset); err != nil {
		return err
	}
	if err := s.repo.ResetStatuses(ctx, teamID, enums.ItemStatusIncomplete); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset item statuses")
	}
	return nil
}

func (s *service) Summary(ctx context.Context, actorID, teamID uuid.UUID) (*SummaryDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermItemView); err != nil {
		return nil, err
	}

	counts, err := s.repo.CountByStatus(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count items")
	}
	totals := ComputeTotals(counts)

	rows, err := s.repo.CountByCreatorAndStatus(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count contributions")
	}

	byCreator := make(map[uuid.UUID]*Contribution)
	order := make([]uuid.UUID, 0)
	for _, row := range rows {
		entry, ok := byCreator[row.CreatedBy]
		if !ok {
			entry = &Contribution{UserID: row.CreatedBy}
			byCreator[row.CreatedBy] = entry
			order = append(order, row.CreatedBy)
		}
		switch row.Status {
		case enums.ItemStatusFound, enums.ItemStatusCompleted:
			entry.Completed += row.Count
		case enums.ItemStatusMissing:
			entry.Shortages += row.Count
		case enums.ItemStatusDamaged:
			entry.Damaged += row.Count
		default:
			continue
		}
		entry.Total += row.Count
	}

	contributions := make([]Contribution, 0, len(order))
	for _, id := range order {
		entry := byCreator[id]
		entry.Username = s.usernameFor(ctx, id)
		contributions = append(contributions, *entry)
	}

	return &SummaryDTO{
		Totals:          totals,
		PercentReviewed: totals.PercentReviewed(),
		Contributions:   contributions,
	}, nil
}

func (s *service) loadItem(ctx context.Context, teamID, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindByTeamAndID(ctx, teamID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}

func (s *service) checkIdentifierUnique(ctx context.Context, teamID uuid.UUID, isKit bool, nsn, endItemNIIN *string, excludeID *uuid.UUID) error {
	if !isKit && nsn != nil && strings.TrimSpace(*nsn) != "" {
		exists, err := s.repo.NSNExists(ctx, teamID, *nsn, excludeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check nsn")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "an item with this NSN already exists")
		}
	}
	if isKit && endItemNIIN != nil && strings.TrimSpace(*endItemNIIN) != "" {
		exists, err := s.repo.EndItemNIINExists(ctx, teamID, *endItemNIIN, excludeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check end item niin")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "a kit with this end item NIIN already exists")
		}
	}
	return nil
}

// checkParent enforces same-team parents and a cycle-free graph. selfID
// is uuid.Nil for brand new items.
func (s *service) checkParent(ctx context.Context, teamID, parentID, selfID uuid.UUID) error {
	if parentID == selfID {
		return pkgerrors.New(pkgerrors.CodeValidation, "item cannot be its own parent")
	}

	seen := make(map[uuid.UUID]struct{})
	current := parentID
	for {
		if _, ok := seen[current]; ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "item parent chain contains a cycle")
		}
		seen[current] = struct{}{}

		parent, err := s.repo.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "parent item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent item")
		}
		if parent.TeamID != teamID {
			return pkgerrors.New(pkgerrors.CodeValidation, "parent item belongs to a different team")
		}
		if parent.ID == selfID {
			return pkgerrors.New(pkgerrors.CodeValidation, "item cannot become its own ancestor")
		}
		if parent.ParentID == nil {
			return nil
		}
		if *parent.ParentID == selfID {
			return pkgerrors.New(pkgerrors.CodeValidation, "item cannot become its own ancestor")
		}
		current = *parent.ParentID
	}
}

func (s *service) collectDescendants(ctx context.Context, rootID uuid.UUID) ([]models.Item, error) {
	var all []models.Item
	frontier := []uuid.UUID{rootID}
	for len(frontier) > 0 {
		children, err := s.repo.ListByParents(ctx, frontier)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load kit components")
		}
		frontier = frontier[:0]
		for i := range children {
			all = append(all, children[i])
			frontier = append(frontier, children[i].ID)
		}
	}
	return all, nil
}

func (s *service) storeItemImage(ctx context.Context, item *models.Item, dataURL string) (string, error) {
	contentType, _, err := media.ParseDataURL(dataURL)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("items/%s/%s.%s", item.TeamID, itemIdentifier(item), media.ExtensionFor(contentType))

	result, err := s.media.Store(ctx, key, dataURL)
	if err != nil {
		return "", err
	}
	return result.Key, nil
}

func (s *service) appendLog(ctx context.Context, item *models.Item, actorID uuid.UUID, action string) {
	entry := &models.ItemUpdateLog{
		ItemID:   item.ID,
		TeamID:   item.TeamID,
		UserID:   actorID,
		UserName: s.usernameFor(ctx, actorID),
		Action:   action,
	}
	// the log is best effort; failures must not roll back the write
	_ = s.repo.CreateLog(ctx, entry)
}

func (s *service) usernameFor(ctx context.Context, userID uuid.UUID) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return "unknown"
	}
	return user.Username
}

func itemIdentifier(item *models.Item) string {
	for _, candidate := range []*string{item.NSN, item.LIIN, item.EndItemNIIN} {
		if candidate != nil && strings.TrimSpace(*candidate) != "" {
			return strings.TrimSpace(*candidate)
		}
	}
	return item.ID.String()
}

func itemPrefix(teamID uuid.UUID) string {
	return fmt.Sprintf("items/%s/", teamID)
}
