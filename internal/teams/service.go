package teams

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/internal/items"
	"github.com/quartermasterhq/quartermaster-backend/internal/memberships"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	"github.com/quartermasterhq/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

type teamRepository interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	CreateWithTx(tx *gorm.DB, team *models.Team) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Team, error)
	FindByNameLower(ctx context.Context, nameLower string) (*models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type membershipsRepository interface {
	GetMembership(ctx context.Context, userID, teamID uuid.UUID) (*models.TeamMembership, error)
	CreateMembership(ctx context.Context, teamID, userID uuid.UUID, roleID string) (*models.TeamMembership, error)
	CreateMembershipWithTx(tx *gorm.DB, teamID, userID uuid.UUID, roleID string) (*models.TeamMembership, error)
	DeleteMembership(ctx context.Context, teamID, userID uuid.UUID) error
	DeleteTeamMemberships(ctx context.Context, teamID uuid.UUID) error
	ListUserTeams(ctx context.Context, userID uuid.UUID) ([]memberships.MembershipWithTeam, error)
	ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]memberships.TeamMemberDTO, error)
	CountMembers(ctx context.Context, teamID uuid.UUID) (int64, error)
}

type userFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type roleChecker interface {
	roles.Authorizer
	Get(ctx context.Context, id string) (*roles.RoleDTO, error)
}

type itemStats interface {
	CountByStatus(ctx context.Context, teamID uuid.UUID) (map[enums.ItemStatus]int64, error)
	DeleteTeamItems(ctx context.Context, teamID uuid.UUID) error
	DeleteTeamLogs(ctx context.Context, teamID uuid.UUID) error
}

type objectStore interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// Service exposes teamspace operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateTeamInput) (*TeamDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]TeamSummaryDTO, error)
	Get(ctx context.Context, userID, teamID uuid.UUID) (*TeamDetailDTO, error)
	Update(ctx context.Context, actorID, teamID uuid.UUID, input UpdateTeamInput) (*TeamDTO, error)
	AddMember(ctx context.Context, actorID, teamID uuid.UUID, username, roleID string) (*memberships.MembershipDTO, error)
	RemoveMember(ctx context.Context, actorID, teamID uuid.UUID, username string) error
	Members(ctx context.Context, actorID, teamID uuid.UUID) ([]memberships.TeamMemberDTO, error)
	Delete(ctx context.Context, actorID, teamID uuid.UUID) error
}

type service struct {
	repo        teamRepository
	memberships membershipsRepository
	users       userFinder
	roles       roleChecker
	items       itemStats
	store       objectStore
}

// NewService builds the teams service with the provided dependencies.
func NewService(repo teamRepository, membershipsRepo membershipsRepository, users userFinder, roleSvc roleChecker, itemsRepo itemStats, store objectStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("team repository required")
	}
	if membershipsRepo == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if roleSvc == nil {
		return nil, fmt.Errorf("roles service required")
	}
	if itemsRepo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	return &service{
		repo:        repo,
		memberships: membershipsRepo,
		users:       users,
		roles:       roleSvc,
		items:       itemsRepo,
		store:       store,
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

// Create opens a teamspace and grants the creator the OWNER role in the
// same transaction.
func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateTeamInput) (*TeamDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "team name is required")
	}
	nameLower := strings.ToLower(name)

	if _, err := s.repo.FindByNameLower(ctx, nameLower); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a team with this name already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check team name")
	}

	team := &models.Team{
		ID:          uuid.New(),
		Name:        name,
		NameLower:   nameLower,
		Description: input.Description,
		UIC:         input.UIC,
		FE:          input.FE,
		OwnerID:     ownerID,
	}

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(tx, team); err != nil {
			return err
		}
		_, err := s.memberships.CreateMembershipWithTx(tx, team.ID, ownerID, roles.RoleID(roles.RoleOwner))
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create team")
	}

	return FromModel(team), nil
}

// ListForUser returns every team the user belongs to, enriched with
// review totals.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]TeamSummaryDTO, error) {
	rows, err := s.memberships.ListUserTeams(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list memberships")
	}

	ids := make([]uuid.UUID, 0, len(rows))
	roleByTeam := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TeamID)
		roleByTeam[row.TeamID] = row.RoleID
	}

	teamRows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load teams")
	}

	summaries := make([]TeamSummaryDTO, 0, len(teamRows))
	for i := range teamRows {
		counts, err := s.items.CountByStatus(ctx, teamRows[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count items")
		}
		totals := items.ComputeTotals(counts)
		summaries = append(summaries, TeamSummaryDTO{
			TeamDTO:         *FromModel(&teamRows[i]),
			RoleID:          roleByTeam[teamRows[i].ID],
			Totals:          totals,
			PercentReviewed: totals.PercentReviewed(),
		})
	}
	return summaries, nil
}

// Get returns one team for a requester who must be a member.
func (s *service) Get(ctx context.Context, userID, teamID uuid.UUID) (*TeamDetailDTO, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	membership, err := s.memberships.GetMembership(ctx, userID, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this team")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}

	memberCount, err := s.memberships.CountMembers(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count members")
	}
	counts, err := s.items.CountByStatus(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count items")
	}
	totals := items.ComputeTotals(counts)

	return &TeamDetailDTO{
		TeamDTO:         *FromModel(team),
		RoleID:          membership.RoleID,
		MemberCount:     memberCount,
		Totals:          totals,
		PercentReviewed: totals.PercentReviewed(),
	}, nil
}

// Update applies a partial patch to the team record.
func (s *service) Update(ctx context.Context, actorID, teamID uuid.UUID, input UpdateTeamInput) (*TeamDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermTeamUpdate); err != nil {
		return nil, err
	}

	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "team name is required")
		}
		nameLower := strings.ToLower(name)
		if nameLower != team.NameLower {
			if _, err := s.repo.FindByNameLower(ctx, nameLower); err == nil {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "a team with this name already exists")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check team name")
			}
		}
		team.Name = name
		team.NameLower = nameLower
	}
	if input.Description != nil {
		team.Description = input.Description
	}
	if input.UIC != nil {
		team.UIC = input.UIC
	}
	if input.FE != nil {
		team.FE = input.FE
	}

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update team")
	}
	return FromModel(team), nil
}

// AddMember enrolls a user by username. Adding an existing member is a
// no-op that returns the current membership.
func (s *service) AddMember(ctx context.Context, actorID, teamID uuid.UUID, username, roleID string) (*memberships.MembershipDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermTeamAddMember); err != nil {
		return nil, err
	}

	if strings.TrimSpace(roleID) == "" {
		roleID = roles.RoleMember
	}
	roleID = roles.RoleID(roleID)
	if _, err := s.roles.Get(ctx, roleID); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if existing, err := s.memberships.GetMembership(ctx, user.ID, teamID); err == nil {
		return memberships.ToDTO(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}

	membership, err := s.memberships.CreateMembership(ctx, teamID, user.ID, roleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
	}
	return memberships.ToDTO(membership), nil
}

// RemoveMember drops a user from the team. The owner cannot be removed.
func (s *service) RemoveMember(ctx context.Context, actorID, teamID uuid.UUID, username string) error {
	if err := s.authorize(ctx, actorID, teamID, roles.PermTeamRemoveMember); err != nil {
		return err
	}

	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	user, err := s.findUser(ctx, username)
	if err != nil {
		return err
	}
	if user.ID == team.OwnerID {
		return pkgerrors.New(pkgerrors.CodeValidation, "the team owner cannot be removed")
	}

	if err := s.memberships.DeleteMembership(ctx, teamID, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete membership")
	}
	return nil
}

// Members lists the roster with each member's role permissions.
func (s *service) Members(ctx context.Context, actorID, teamID uuid.UUID) ([]memberships.TeamMemberDTO, error) {
	if err := s.authorize(ctx, actorID, teamID, roles.PermTeamView); err != nil {
		return nil, err
	}

	members, err := s.memberships.ListTeamMembers(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}

	permsByRole := make(map[string][]string)
	for i := range members {
		perms, ok := permsByRole[members[i].RoleID]
		if !ok {
			role, err := s.roles.Get(ctx, members[i].RoleID)
			if err == nil {
				perms = role.Permissions
			}
			permsByRole[members[i].RoleID] = perms
		}
		members[i].Permissions = perms
	}
	return members, nil
}

// Delete tears down the teamspace: memberships, items, update logs, and
// the stored item images.
func (s *service) Delete(ctx context.Context, actorID, teamID uuid.UUID) error {
	if err := s.authorize(ctx, actorID, teamID, roles.PermTeamDelete); err != nil {
		return err
	}
	if _, err := s.loadTeam(ctx, teamID); err != nil {
		return err
	}

	if err := s.items.DeleteTeamLogs(ctx, teamID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete team logs")
	}
	if err := s.items.DeleteTeamItems(ctx, teamID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete team items")
	}
	if err := s.memberships.DeleteTeamMemberships(ctx, teamID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete memberships")
	}
	if err := s.repo.Delete(ctx, teamID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete team")
	}
	if err := s.store.DeletePrefix(ctx, fmt.Sprintf("items/%s/", teamID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item images")
	}
	return nil
}

func (s *service) loadTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := s.repo.FindByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "team not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load team")
	}
	return team, nil
}

func (s *service) findUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
