package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

type stubRoleRepo struct {
	roles map[string]*models.Role
	err   error
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{roles: make(map[string]*models.Role)}
}

func (s *stubRoleRepo) FindByID(_ context.Context, id string) (*models.Role, error) {
	if s.err != nil {
		return nil, s.err
	}
	role, ok := s.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cpy := *role
	return &cpy, nil
}

func (s *stubRoleRepo) List(_ context.Context) ([]models.Role, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubRoleRepo) Create(_ context.Context, role *models.Role) error {
	if s.err != nil {
		return s.err
	}
	s.roles[role.ID] = role
	return nil
}

func (s *stubRoleRepo) CreateIfMissing(_ context.Context, role *models.Role) error {
	if s.err != nil {
		return s.err
	}
	if _, exists := s.roles[role.ID]; !exists {
		s.roles[role.ID] = role
	}
	return nil
}

func (s *stubRoleRepo) Update(_ context.Context, role *models.Role) error {
	if s.err != nil {
		return s.err
	}
	s.roles[role.ID] = role
	return nil
}

func (s *stubRoleRepo) Delete(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.roles, id)
	return nil
}

type stubMembershipsRepo struct {
	membership *models.TeamMembership
	err        error
}

func (s stubMembershipsRepo) GetMembership(context.Context, uuid.UUID, uuid.UUID) (*models.TeamMembership, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.membership == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.membership, nil
}

func TestNewServiceRequiresRepos(t *testing.T) {
	if _, err := NewService(nil, stubMembershipsRepo{}); err == nil {
		t.Fatal("expected error creating service without repo")
	}
	if _, err := NewService(newStubRoleRepo(), nil); err == nil {
		t.Fatal("expected error creating service without memberships repo")
	}
}

func TestSeedInsertsDefaultsOnce(t *testing.T) {
	repo := newStubRoleRepo()
	svc, err := NewService(repo, stubMembershipsRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(repo.roles) != len(DefaultRoles) {
		t.Fatalf("expected %d seeded roles, got %d", len(DefaultRoles), len(repo.roles))
	}

	// customize one role out of band, reseed, verify it survives
	owner := repo.roles["OWNER"]
	owner.Permissions = pq.StringArray{PermItemView}
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if len(repo.roles["OWNER"].Permissions) != 1 {
		t.Fatal("reseed must not overwrite existing rows")
	}
}

func TestRoleIDNormalization(t *testing.T) {
	if got := RoleID("  Supply Sergeant "); got != "SUPPLY SERGEANT" {
		t.Fatalf("unexpected role id %q", got)
	}
}

func TestCreateConflictsOnExistingID(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles["ARMORER"] = &models.Role{ID: "ARMORER", Name: "Armorer"}
	svc, _ := NewService(repo, stubMembershipsRepo{})

	_, err := svc.Create(context.Background(), CreateRoleInput{Name: "armorer"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := NewService(newStubRoleRepo(), stubMembershipsRepo{})
	_, err := svc.Create(context.Background(), CreateRoleInput{Name: "   "})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateRejectsDefaultRole(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles["OWNER"] = &models.Role{ID: "OWNER", Name: "Owner", IsDefault: true}
	svc, _ := NewService(repo, stubMembershipsRepo{})

	perms := []string{PermItemView}
	_, err := svc.Update(context.Background(), "owner", UpdateRoleInput{Permissions: &perms})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, _ := NewService(newStubRoleRepo(), stubMembershipsRepo{})
	if err := svc.Delete(context.Background(), "GHOST"); err != nil {
		t.Fatalf("deleting a missing role should be a no-op, got %v", err)
	}
}

func TestDeleteRejectsDefaultRole(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles["MEMBER"] = &models.Role{ID: "MEMBER", Name: "Member", IsDefault: true}
	svc, _ := NewService(repo, stubMembershipsRepo{})

	err := svc.Delete(context.Background(), "member")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthorizeAllowsMatchingPermission(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles["MANAGER"] = &models.Role{
		ID:          "MANAGER",
		Name:        "Manager",
		Permissions: pq.StringArray{PermItemCreate, PermItemView},
	}
	svc, _ := NewService(repo, stubMembershipsRepo{
		membership: &models.TeamMembership{RoleID: "MANAGER"},
	})

	decision, err := svc.Authorize(context.Background(), uuid.New(), uuid.New(), PermItemCreate)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allowed, got reason %q", decision.Reason)
	}
}

func TestAuthorizeDeniesWithReason(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles["MEMBER"] = &models.Role{
		ID:          "MEMBER",
		Name:        "Member",
		Permissions: pq.StringArray{PermItemView},
	}
	svc, _ := NewService(repo, stubMembershipsRepo{
		membership: &models.TeamMembership{RoleID: "MEMBER"},
	})

	decision, err := svc.Authorize(context.Background(), uuid.New(), uuid.New(), PermItemDelete)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if decision.Allowed || decision.Reason == "" {
		t.Fatalf("expected denial with reason, got %+v", decision)
	}
}

func TestAuthorizeDeniesNonMember(t *testing.T) {
	svc, _ := NewService(newStubRoleRepo(), stubMembershipsRepo{})
	decision, err := svc.Authorize(context.Background(), uuid.New(), uuid.New(), PermTeamView)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if decision.Allowed {
		t.Fatal("non-member must be denied")
	}
}

func TestAuthorizeDependencyError(t *testing.T) {
	svc, _ := NewService(newStubRoleRepo(), stubMembershipsRepo{err: errors.New("boom")})
	_, err := svc.Authorize(context.Background(), uuid.New(), uuid.New(), PermTeamView)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
