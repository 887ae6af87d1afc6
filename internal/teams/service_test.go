package teams

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/internal/memberships"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	"github.com/quartermasterhq/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

type stubTeamRepo struct {
	teams map[uuid.UUID]*models.Team
	err   error
}

func newStubTeamRepo() *stubTeamRepo {
	return &stubTeamRepo{teams: make(map[uuid.UUID]*models.Team)}
}

func (s *stubTeamRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func (s *stubTeamRepo) CreateWithTx(_ *gorm.DB, team *models.Team) error {
	if s.err != nil {
		return s.err
	}
	s.teams[team.ID] = team
	return nil
}

func (s *stubTeamRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Team, error) {
	team, ok := s.teams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cpy := *team
	return &cpy, nil
}

func (s *stubTeamRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Team, error) {
	var out []models.Team
	for _, id := range ids {
		if team, ok := s.teams[id]; ok {
			out = append(out, *team)
		}
	}
	return out, nil
}

func (s *stubTeamRepo) FindByNameLower(_ context.Context, nameLower string) (*models.Team, error) {
	for _, team := range s.teams {
		if team.NameLower == nameLower {
			cpy := *team
			return &cpy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubTeamRepo) Update(_ context.Context, team *models.Team) error {
	s.teams[team.ID] = team
	return nil
}

func (s *stubTeamRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.teams, id)
	return nil
}

type stubTeamMemberships struct {
	rows    map[string]*models.TeamMembership
	members map[uuid.UUID][]memberships.TeamMemberDTO
}

func newStubTeamMemberships() *stubTeamMemberships {
	return &stubTeamMemberships{
		rows:    make(map[string]*models.TeamMembership),
		members: make(map[uuid.UUID][]memberships.TeamMemberDTO),
	}
}

func key(userID, teamID uuid.UUID) string {
	return userID.String() + "/" + teamID.String()
}

func (s *stubTeamMemberships) GetMembership(_ context.Context, userID, teamID uuid.UUID) (*models.TeamMembership, error) {
	m, ok := s.rows[key(userID, teamID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (s *stubTeamMemberships) create(teamID, userID uuid.UUID, roleID string) *models.TeamMembership {
	m := &models.TeamMembership{ID: uuid.New(), TeamID: teamID, UserID: userID, RoleID: roleID}
	s.rows[key(userID, teamID)] = m
	return m
}

func (s *stubTeamMemberships) CreateMembership(_ context.Context, teamID, userID uuid.UUID, roleID string) (*models.TeamMembership, error) {
	return s.create(teamID, userID, roleID), nil
}

func (s *stubTeamMemberships) CreateMembershipWithTx(_ *gorm.DB, teamID, userID uuid.UUID, roleID string) (*models.TeamMembership, error) {
	return s.create(teamID, userID, roleID), nil
}

func (s *stubTeamMemberships) DeleteMembership(_ context.Context, teamID, userID uuid.UUID) error {
	delete(s.rows, key(userID, teamID))
	return nil
}

func (s *stubTeamMemberships) DeleteTeamMemberships(_ context.Context, teamID uuid.UUID) error {
	for k, m := range s.rows {
		if m.TeamID == teamID {
			delete(s.rows, k)
		}
	}
	return nil
}

func (s *stubTeamMemberships) ListUserTeams(_ context.Context, userID uuid.UUID) ([]memberships.MembershipWithTeam, error) {
	var out []memberships.MembershipWithTeam
	for _, m := range s.rows {
		if m.UserID == userID {
			out = append(out, memberships.MembershipWithTeam{
				MembershipID: m.ID,
				TeamID:       m.TeamID,
				UserID:       m.UserID,
				RoleID:       m.RoleID,
			})
		}
	}
	return out, nil
}

func (s *stubTeamMemberships) ListTeamMembers(_ context.Context, teamID uuid.UUID) ([]memberships.TeamMemberDTO, error) {
	return s.members[teamID], nil
}

func (s *stubTeamMemberships) CountMembers(_ context.Context, teamID uuid.UUID) (int64, error) {
	var count int64
	for _, m := range s.rows {
		if m.TeamID == teamID {
			count++
		}
	}
	return count, nil
}

type stubUserFinder struct {
	byUsername map[string]*models.User
}

func (s *stubUserFinder) FindByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := s.byUsername[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type stubTeamRoles struct {
	decision roles.Decision
	catalog  map[string]*models.Role
}

func (s *stubTeamRoles) Authorize(_ context.Context, _, _ uuid.UUID, _ string) (roles.Decision, error) {
	return s.decision, nil
}

func (s *stubTeamRoles) Get(_ context.Context, id string) (*roles.RoleDTO, error) {
	role, ok := s.catalog[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "role not found")
	}
	return roles.FromModel(role), nil
}

type stubTeamItems struct {
	counts       map[uuid.UUID]map[enums.ItemStatus]int64
	itemsDeleted []uuid.UUID
	logsDeleted  []uuid.UUID
}

func (s *stubTeamItems) CountByStatus(_ context.Context, teamID uuid.UUID) (map[enums.ItemStatus]int64, error) {
	return s.counts[teamID], nil
}

func (s *stubTeamItems) DeleteTeamItems(_ context.Context, teamID uuid.UUID) error {
	s.itemsDeleted = append(s.itemsDeleted, teamID)
	return nil
}

func (s *stubTeamItems) DeleteTeamLogs(_ context.Context, teamID uuid.UUID) error {
	s.logsDeleted = append(s.logsDeleted, teamID)
	return nil
}

type stubTeamStore struct {
	prefixes []string
}

func (s *stubTeamStore) DeletePrefix(_ context.Context, prefix string) error {
	s.prefixes = append(s.prefixes, prefix)
	return nil
}

type teamFixture struct {
	repo        *stubTeamRepo
	memberships *stubTeamMemberships
	users       *stubUserFinder
	roles       *stubTeamRoles
	items       *stubTeamItems
	store       *stubTeamStore
	svc         Service
}

func newTeamFixture(t *testing.T) *teamFixture {
	t.Helper()
	f := &teamFixture{
		repo:        newStubTeamRepo(),
		memberships: newStubTeamMemberships(),
		users:       &stubUserFinder{byUsername: make(map[string]*models.User)},
		roles: &stubTeamRoles{
			decision: roles.Decision{Allowed: true},
			catalog: map[string]*models.Role{
				"OWNER":   {ID: "OWNER", Name: "Owner", Permissions: pq.StringArray{roles.PermTeamView}},
				"MANAGER": {ID: "MANAGER", Name: "Manager"},
				"MEMBER":  {ID: "MEMBER", Name: "Member", Permissions: pq.StringArray{roles.PermItemView}},
			},
		},
		items: &stubTeamItems{counts: make(map[uuid.UUID]map[enums.ItemStatus]int64)},
		store: &stubTeamStore{},
	}
	svc, err := NewService(f.repo, f.memberships, f.users, f.roles, f.items, f.store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func TestCreateGrantsOwnerMembership(t *testing.T) {
	f := newTeamFixture(t)
	ownerID := uuid.New()

	dto, err := f.svc.Create(context.Background(), ownerID, CreateTeamInput{Name: "  Bravo Company  "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Name != "Bravo Company" {
		t.Fatalf("name not trimmed: %q", dto.Name)
	}
	membership, err := f.memberships.GetMembership(context.Background(), ownerID, dto.ID)
	if err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	if membership.RoleID != "OWNER" {
		t.Fatalf("expected OWNER role, got %s", membership.RoleID)
	}
}

func TestCreateRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	f := newTeamFixture(t)
	if _, err := f.svc.Create(context.Background(), uuid.New(), CreateTeamInput{Name: "Bravo Company"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateTeamInput{Name: "BRAVO company"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetRequiresMembership(t *testing.T) {
	f := newTeamFixture(t)
	ownerID := uuid.New()
	dto, err := f.svc.Create(context.Background(), ownerID, CreateTeamInput{Name: "Bravo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.svc.Get(context.Background(), uuid.New(), dto.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}

	detail, err := f.svc.Get(context.Background(), ownerID, dto.ID)
	if err != nil {
		t.Fatalf("Get as member: %v", err)
	}
	if detail.RoleID != "OWNER" || detail.MemberCount != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestGetUnknownTeam(t *testing.T) {
	f := newTeamFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New(), uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddMemberIsIdempotent(t *testing.T) {
	f := newTeamFixture(t)
	teamID := uuid.New()
	f.repo.teams[teamID] = &models.Team{ID: teamID, Name: "Bravo", NameLower: "bravo"}
	user := &models.User{ID: uuid.New(), Username: "bravo-six"}
	f.users.byUsername["bravo-six"] = user

	first, err := f.svc.AddMember(context.Background(), uuid.New(), teamID, "bravo-six", "member")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	second, err := f.svc.AddMember(context.Background(), uuid.New(), teamID, "bravo-six", "member")
	if err != nil {
		t.Fatalf("repeat AddMember: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("repeat enrollment created a second membership")
	}
	if first.RoleID != "MEMBER" {
		t.Fatalf("role id not normalized: %s", first.RoleID)
	}
}

func TestAddMemberUnknownUser(t *testing.T) {
	f := newTeamFixture(t)
	_, err := f.svc.AddMember(context.Background(), uuid.New(), uuid.New(), "ghost", "member")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveMemberRejectsOwner(t *testing.T) {
	f := newTeamFixture(t)
	ownerID := uuid.New()
	dto, err := f.svc.Create(context.Background(), ownerID, CreateTeamInput{Name: "Bravo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.users.byUsername["the-owner"] = &models.User{ID: ownerID, Username: "the-owner"}

	err = f.svc.RemoveMember(context.Background(), uuid.New(), dto.ID, "the-owner")
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error removing owner, got %v", err)
	}
}

func TestRemoveMemberDeletesMembership(t *testing.T) {
	f := newTeamFixture(t)
	ownerID := uuid.New()
	dto, err := f.svc.Create(context.Background(), ownerID, CreateTeamInput{Name: "Bravo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	member := &models.User{ID: uuid.New(), Username: "pfc-hill"}
	f.users.byUsername["pfc-hill"] = member
	f.memberships.create(dto.ID, member.ID, "MEMBER")

	if err := f.svc.RemoveMember(context.Background(), uuid.New(), dto.ID, "pfc-hill"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if _, err := f.memberships.GetMembership(context.Background(), member.ID, dto.ID); err == nil {
		t.Fatalf("membership still present")
	}
}

func TestMembersEnrichesPermissions(t *testing.T) {
	f := newTeamFixture(t)
	teamID := uuid.New()
	f.memberships.members[teamID] = []memberships.TeamMemberDTO{
		{TeamID: teamID, UserID: uuid.New(), Username: "pfc-hill", RoleID: "MEMBER"},
	}

	members, err := f.svc.Members(context.Background(), uuid.New(), teamID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
	if len(members[0].Permissions) != 1 || members[0].Permissions[0] != roles.PermItemView {
		t.Fatalf("permissions not resolved: %v", members[0].Permissions)
	}
}

func TestDeleteCascades(t *testing.T) {
	f := newTeamFixture(t)
	ownerID := uuid.New()
	dto, err := f.svc.Create(context.Background(), ownerID, CreateTeamInput{Name: "Bravo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.svc.Delete(context.Background(), ownerID, dto.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.repo.teams) != 0 {
		t.Fatalf("team row still present")
	}
	if len(f.items.itemsDeleted) != 1 || len(f.items.logsDeleted) != 1 {
		t.Fatalf("item cascade missing")
	}
	if count, _ := f.memberships.CountMembers(context.Background(), dto.ID); count != 0 {
		t.Fatalf("memberships remain")
	}
	wantPrefix := "items/" + dto.ID.String() + "/"
	if len(f.store.prefixes) != 1 || f.store.prefixes[0] != wantPrefix {
		t.Fatalf("expected prefix delete %q, got %v", wantPrefix, f.store.prefixes)
	}
}

func TestListForUserComputesProgress(t *testing.T) {
	f := newTeamFixture(t)
	userID := uuid.New()
	dto, err := f.svc.Create(context.Background(), userID, CreateTeamInput{Name: "Bravo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.items.counts[dto.ID] = map[enums.ItemStatus]int64{
		enums.ItemStatusIncomplete: 1,
		enums.ItemStatusCompleted:  3,
	}

	summaries, err := f.svc.ListForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one team, got %d", len(summaries))
	}
	s := summaries[0]
	if s.RoleID != "OWNER" || s.Totals.Total != 4 || s.PercentReviewed != 75 {
		t.Fatalf("unexpected summary %+v", s)
	}
}
