package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/internal/media"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

type stubUserRepo struct {
	byID       map[uuid.UUID]*models.User
	byUsername map[string]*models.User
	err        error
	created    int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byID:       make(map[uuid.UUID]*models.User),
		byUsername: make(map[string]*models.User),
	}
}

func (s *stubUserRepo) add(u *models.User) {
	s.byID[u.ID] = u
	s.byUsername[u.Username] = u
}

func (s *stubUserRepo) Create(_ context.Context, dto CreateUserDTO) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created++
	user := dto.ToModel()
	s.add(user)
	return user, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cpy := *user
	return &cpy, nil
}

func (s *stubUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.byUsername[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cpy := *user
	return &cpy, nil
}

func (s *stubUserRepo) List(_ context.Context) ([]models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubUserRepo) Update(_ context.Context, user *models.User) error {
	if s.err != nil {
		return s.err
	}
	for name, u := range s.byUsername {
		if u.ID == user.ID && name != user.Username {
			delete(s.byUsername, name)
		}
	}
	s.add(user)
	return nil
}

func (s *stubUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	if u, ok := s.byID[id]; ok {
		delete(s.byUsername, u.Username)
		delete(s.byID, id)
	}
	return nil
}

type stubUserMemberships struct {
	memberships map[string]*models.TeamMembership
	assigned    map[string]string
	deletedFor  []uuid.UUID
	err         error
}

func newStubUserMemberships() *stubUserMemberships {
	return &stubUserMemberships{
		memberships: make(map[string]*models.TeamMembership),
		assigned:    make(map[string]string),
	}
}

func membershipKey(userID, teamID uuid.UUID) string {
	return userID.String() + "/" + teamID.String()
}

func (s *stubUserMemberships) GetMembership(_ context.Context, userID, teamID uuid.UUID) (*models.TeamMembership, error) {
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.memberships[membershipKey(userID, teamID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (s *stubUserMemberships) UpdateMembershipRole(_ context.Context, teamID, userID uuid.UUID, roleID string) error {
	if s.err != nil {
		return s.err
	}
	s.assigned[membershipKey(userID, teamID)] = roleID
	return nil
}

func (s *stubUserMemberships) DeleteUserMemberships(_ context.Context, userID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.deletedFor = append(s.deletedFor, userID)
	return nil
}

type stubRoleChecker struct {
	decision roles.Decision
	known    map[string]bool
	err      error
}

func (s *stubRoleChecker) Authorize(_ context.Context, _, _ uuid.UUID, _ string) (roles.Decision, error) {
	if s.err != nil {
		return roles.Decision{}, s.err
	}
	return s.decision, nil
}

func (s *stubRoleChecker) Get(_ context.Context, id string) (*roles.RoleDTO, error) {
	if s.known[id] {
		return &roles.RoleDTO{ID: id, Name: id}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "role not found")
}

type stubProfileStore struct {
	deletedPrefixes []string
	existing        map[string]bool
	signed          []string
	err             error
}

func (s *stubProfileStore) DeletePrefix(_ context.Context, prefix string) error {
	if s.err != nil {
		return s.err
	}
	s.deletedPrefixes = append(s.deletedPrefixes, prefix)
	return nil
}

func (s *stubProfileStore) Exists(_ context.Context, key string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.existing[key], nil
}

func (s *stubProfileStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.signed = append(s.signed, key)
	return "https://bucket.example/" + key + "?sig=abc", nil
}

type stubProfileMedia struct {
	storedKeys []string
	err        error
}

func (s *stubProfileMedia) Store(_ context.Context, key, _ string) (*media.UploadResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.storedKeys = append(s.storedKeys, key)
	return &media.UploadResult{OK: true, Key: key}, nil
}

func newUserService(t *testing.T, repo *stubUserRepo, memberships *stubUserMemberships, checker *stubRoleChecker, store *stubProfileStore) Service {
	t.Helper()
	svc, err := NewService(repo, memberships, checker, &stubProfileMedia{}, store, time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGetProfileReturnsExisting(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	repo.add(&models.User{ID: id, Username: "alpha"})
	svc := newUserService(t, repo, newStubUserMemberships(), &stubRoleChecker{}, &stubProfileStore{})

	dto, err := svc.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if dto.Username != "alpha" {
		t.Fatalf("expected alpha, got %s", dto.Username)
	}
	if repo.created != 0 {
		t.Fatalf("expected no user to be created")
	}
}

func TestGetProfileAutoCreates(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	svc := newUserService(t, repo, newStubUserMemberships(), &stubRoleChecker{}, &stubProfileStore{})

	dto, err := svc.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if dto.ID != id {
		t.Fatalf("expected id %s, got %s", id, dto.ID)
	}
	if !strings.HasPrefix(dto.Username, "user-") || len(dto.Username) != len("user-000000") {
		t.Fatalf("unexpected generated username %q", dto.Username)
	}
	if repo.created != 1 {
		t.Fatalf("expected exactly one create, got %d", repo.created)
	}
}

func TestUpdateProfileSanitizesUsername(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	repo.add(&models.User{ID: id, Username: "alpha"})
	svc := newUserService(t, repo, newStubUserMemberships(), &stubRoleChecker{}, &stubProfileStore{})

	username := "  new name!@# "
	dto, err := svc.UpdateProfile(context.Background(), id, UpdateProfileInput{Username: &username})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if dto.Username != "newname" {
		t.Fatalf("expected sanitized username newname, got %q", dto.Username)
	}
}

func TestUpdateProfileRejectsEmptyUsername(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	repo.add(&models.User{ID: id, Username: "alpha"})
	svc := newUserService(t, repo, newStubUserMemberships(), &stubRoleChecker{}, &stubProfileStore{})

	username := "!!!"
	_, err := svc.UpdateProfile(context.Background(), id, UpdateProfileInput{Username: &username})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateProfileUsernameConflict(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	repo.add(&models.User{ID: id, Username: "alpha"})
	repo.add(&models.User{ID: uuid.New(), Username: "bravo"})
	svc := newUserService(t, repo, newStubUserMemberships(), &stubRoleChecker{}, &stubProfileStore{})

	username := "bravo"
	_, err := svc.UpdateProfile(context.Background(), id, UpdateProfileInput{Username: &username})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestAssignRoleRequiresPermission(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(&models.User{ID: uuid.New(), Username: "bravo"})
	checker := &stubRoleChecker{decision: roles.Decision{Allowed: false, Reason: "missing permission user.assign_role"}}
	svc := newUserService(t, repo, newStubUserMemberships(), checker, &stubProfileStore{})

	err := svc.AssignRole(context.Background(), uuid.New(), uuid.New(), "bravo", "MANAGER")
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestAssignRoleUnknownRole(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(&models.User{ID: uuid.New(), Username: "bravo"})
	checker := &stubRoleChecker{decision: roles.Decision{Allowed: true}, known: map[string]bool{}}
	svc := newUserService(t, repo, newStubUserMemberships(), checker, &stubProfileStore{})

	err := svc.AssignRole(context.Background(), uuid.New(), uuid.New(), "bravo", "GHOST")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestAssignRoleUpdatesMembership(t *testing.T) {
	repo := newStubUserRepo()
	target := &models.User{ID: uuid.New(), Username: "bravo"}
	repo.add(target)
	teamID := uuid.New()
	memberships := newStubUserMemberships()
	memberships.memberships[membershipKey(target.ID, teamID)] = &models.TeamMembership{
		TeamID: teamID, UserID: target.ID, RoleID: "MEMBER",
	}
	checker := &stubRoleChecker{decision: roles.Decision{Allowed: true}, known: map[string]bool{"MANAGER": true}}
	svc := newUserService(t, repo, memberships, checker, &stubProfileStore{})

	if err := svc.AssignRole(context.Background(), uuid.New(), teamID, "bravo", "manager"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if got := memberships.assigned[membershipKey(target.ID, teamID)]; got != "MANAGER" {
		t.Fatalf("expected MANAGER assignment, got %q", got)
	}
}

func TestAssignRoleNonMember(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(&models.User{ID: uuid.New(), Username: "bravo"})
	checker := &stubRoleChecker{decision: roles.Decision{Allowed: true}, known: map[string]bool{"MANAGER": true}}
	svc := newUserService(t, repo, newStubUserMemberships(), checker, &stubProfileStore{})

	err := svc.AssignRole(context.Background(), uuid.New(), uuid.New(), "bravo", "MANAGER")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDeleteSelfOnly(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	repo.add(&models.User{ID: id, Username: "alpha"})
	svc := newUserService(t, repo, newStubUserMemberships(), &stubRoleChecker{}, &stubProfileStore{})

	err := svc.Delete(context.Background(), uuid.New(), id)
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	repo.add(&models.User{ID: id, Username: "alpha"})
	memberships := newStubUserMemberships()
	store := &stubProfileStore{}
	svc := newUserService(t, repo, memberships, &stubRoleChecker{}, store)

	if err := svc.Delete(context.Background(), id, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(memberships.deletedFor) != 1 || memberships.deletedFor[0] != id {
		t.Fatalf("expected memberships cascade for %s", id)
	}
	if len(store.deletedPrefixes) != 1 || store.deletedPrefixes[0] != "Profile/"+id.String() {
		t.Fatalf("unexpected prefix deletes %v", store.deletedPrefixes)
	}
	if _, ok := repo.byID[id]; ok {
		t.Fatalf("expected user row to be deleted")
	}
}

func TestUploadProfileImageStoresUnderProfileKey(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	repo.add(&models.User{ID: id, Username: "alpha"})
	store := &stubProfileStore{}
	mediaStub := &stubProfileMedia{}
	svc, err := NewService(repo, newStubUserMemberships(), &stubRoleChecker{}, mediaStub, store, time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.UploadProfileImage(context.Background(), id, "data:image/png;base64,iVBORw0KGgoAAA==")
	if err != nil {
		t.Fatalf("UploadProfileImage: %v", err)
	}
	if !result.OK {
		t.Fatal("expected ok result")
	}

	wantKey := "Profile/" + id.String() + ".png"
	if len(mediaStub.storedKeys) != 1 || mediaStub.storedKeys[0] != wantKey {
		t.Fatalf("expected one store at %q, got %v", wantKey, mediaStub.storedKeys)
	}
	// The previous image is cleared so a format change cannot leave
	// two extensions behind.
	if len(store.deletedPrefixes) != 1 || store.deletedPrefixes[0] != "Profile/"+id.String() {
		t.Fatalf("unexpected prefix deletes %v", store.deletedPrefixes)
	}
}

func TestUploadProfileImageRejectsNonImage(t *testing.T) {
	repo := newStubUserRepo()
	id := uuid.New()
	repo.add(&models.User{ID: id, Username: "alpha"})
	mediaStub := &stubProfileMedia{}
	svc, err := NewService(repo, newStubUserMemberships(), &stubRoleChecker{}, mediaStub, &stubProfileStore{}, time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.UploadProfileImage(context.Background(), id, "data:application/pdf;base64,JVBERi0=")
	if err == nil || !strings.Contains(err.Error(), "Invalid content-type") {
		t.Fatalf("expected content-type rejection, got %v", err)
	}
	if len(mediaStub.storedKeys) != 0 {
		t.Fatalf("rejected upload must not reach the store, got %v", mediaStub.storedKeys)
	}
}

func TestProfileImageURLProbesExtensions(t *testing.T) {
	id := uuid.New()
	store := &stubProfileStore{existing: map[string]bool{
		"Profile/" + id.String() + ".webp": true,
	}}
	svc := newUserService(t, newStubUserRepo(), newStubUserMemberships(), &stubRoleChecker{}, store)

	url, err := svc.ProfileImageURL(context.Background(), id)
	if err != nil {
		t.Fatalf("ProfileImageURL: %v", err)
	}
	if !strings.Contains(url, id.String()+".webp") {
		t.Fatalf("expected webp link, got %q", url)
	}
	if len(store.signed) != 1 {
		t.Fatalf("expected exactly one presign, got %v", store.signed)
	}
}

func TestProfileImageURLNotFound(t *testing.T) {
	svc := newUserService(t, newStubUserRepo(), newStubUserMemberships(), &stubRoleChecker{}, &stubProfileStore{})

	_, err := svc.ProfileImageURL(context.Background(), uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSanitizeUsername(t *testing.T) {
	cases := map[string]string{
		"  alpha ":     "alpha",
		"Bravo_2-ok":   "Bravo_2-ok",
		"we ird!name?": "weirdname",
		"@#$":          "",
	}
	for in, want := range cases {
		if got := SanitizeUsername(in); got != want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", in, got, want)
		}
	}
}
