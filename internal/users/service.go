package users

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quartermasterhq/quartermaster-backend/internal/media"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

const (
	usernameAttempts   = 5
	profileImagePrefix = "Profile/"
)

// Clients have uploaded profile pictures in several formats over time;
// reads probe each known extension until one hits.
var profileImageExts = []string{"jpg", "jpeg", "png", "webp", "heic"}

type userRepository interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type membershipsRepository interface {
	GetMembership(ctx context.Context, userID, teamID uuid.UUID) (*models.TeamMembership, error)
	UpdateMembershipRole(ctx context.Context, teamID, userID uuid.UUID, roleID string) error
	DeleteUserMemberships(ctx context.Context, userID uuid.UUID) error
}

type roleChecker interface {
	roles.Authorizer
	Get(ctx context.Context, id string) (*roles.RoleDTO, error)
}

type objectStore interface {
	DeletePrefix(ctx context.Context, prefix string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type imageStore interface {
	Store(ctx context.Context, key, dataURL string) (*media.UploadResult, error)
}

// UpdateProfileInput captures the mutable fields of a user profile.
type UpdateProfileInput struct {
	Username *string
	Name     *string
	Email    *string
	RoleHint *string
}

// Service exposes user profile and directory operations.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	GetByUsername(ctx context.Context, username string) (*UserDTO, error)
	List(ctx context.Context) ([]UserDTO, error)
	AssignRole(ctx context.Context, actorID, teamID uuid.UUID, username, roleID string) error
	Delete(ctx context.Context, actorID, userID uuid.UUID) error
	UploadProfileImage(ctx context.Context, userID uuid.UUID, dataURL string) (*media.UploadResult, error)
	ProfileImageURL(ctx context.Context, userID uuid.UUID) (string, error)
}

type service struct {
	repo        userRepository
	memberships membershipsRepository
	roles       roleChecker
	media       imageStore
	store       objectStore
	presignTTL  time.Duration
}

// NewService builds the users service with the provided dependencies.
func NewService(repo userRepository, memberships membershipsRepository, roleSvc roleChecker, mediaSvc imageStore, store objectStore, presignTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if memberships == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if roleSvc == nil {
		return nil, fmt.Errorf("roles service required")
	}
	if mediaSvc == nil {
		return nil, fmt.Errorf("media service required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	return &service{
		repo:        repo,
		memberships: memberships,
		roles:       roleSvc,
		media:       mediaSvc,
		store:       store,
		presignTTL:  presignTTL,
	}, nil
}

// GetProfile loads the caller's profile, creating one on first sight.
func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err == nil {
		return FromModel(user), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	created, err := s.createWithGeneratedUsername(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

func (s *service) createWithGeneratedUsername(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		candidate := generateUsername()
		if _, err := s.repo.FindByUsername(ctx, candidate); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}

		user, err := s.repo.Create(ctx, CreateUserDTO{ID: userID, Username: candidate})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		return user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "could not allocate a username")
}

// UpdateProfile applies a partial update to the caller's own profile.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	if input.Username != nil {
		username := SanitizeUsername(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username must contain letters, digits, '_' or '-'")
		}
		if username != user.Username {
			if _, err := s.repo.FindByUsername(ctx, username); err == nil {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
			}
			user.Username = username
		}
	}
	if input.Name != nil {
		user.Name = input.Name
	}
	if input.Email != nil {
		user.Email = input.Email
	}
	if input.RoleHint != nil {
		user.RoleHint = input.RoleHint
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return FromModel(user), nil
}

// GetByUsername looks up a user in the directory.
func (s *service) GetByUsername(ctx context.Context, username string) (*UserDTO, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

// List returns the full user directory.
func (s *service) List(ctx context.Context) ([]UserDTO, error) {
	models, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	dtos := make([]UserDTO, 0, len(models))
	for i := range models {
		dtos = append(dtos, *FromModel(&models[i]))
	}
	return dtos, nil
}

// AssignRole changes a team member's role. The actor must hold the
// user.assign_role permission on the team and the role must exist.
func (s *service) AssignRole(ctx context.Context, actorID, teamID uuid.UUID, username, roleID string) error {
	decision, err := s.roles.Authorize(ctx, actorID, teamID, roles.PermUserAssignRole)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, decision.Reason)
	}

	roleID = roles.RoleID(roleID)
	if _, err := s.roles.Get(ctx, roleID); err != nil {
		return err
	}

	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	if _, err := s.memberships.GetMembership(ctx, user.ID, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user is not a member of this team")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}

	if err := s.memberships.UpdateMembershipRole(ctx, teamID, user.ID, roleID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign role")
	}
	return nil
}

// Delete removes the caller's own account, their memberships, and any
// profile images they uploaded.
func (s *service) Delete(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "users can only delete their own account")
	}

	if err := s.memberships.DeleteUserMemberships(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete memberships")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if err := s.store.DeletePrefix(ctx, profileImagePrefix+userID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete profile images")
	}
	return nil
}

// UploadProfileImage replaces the caller's profile picture. The old
// image is cleared first so a format change cannot leave two copies
// answering the extension probe.
func (s *service) UploadProfileImage(ctx context.Context, userID uuid.UUID, dataURL string) (*media.UploadResult, error) {
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	contentType, _, err := media.ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("Invalid content-type: %s. Expected image/*", contentType))
	}

	if err := s.store.DeletePrefix(ctx, profileImagePrefix+userID.String()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear profile images")
	}

	key := profileImagePrefix + userID.String() + "." + media.ExtensionFor(contentType)
	return s.media.Store(ctx, key, dataURL)
}

// ProfileImageURL probes the known extensions and returns a
// time-limited download link for the first stored image.
func (s *service) ProfileImageURL(ctx context.Context, userID uuid.UUID) (string, error) {
	for _, ext := range profileImageExts {
		key := profileImagePrefix + userID.String() + "." + ext
		found, err := s.store.Exists(ctx, key)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe profile image")
		}
		if !found {
			continue
		}
		url, err := s.store.PresignGet(ctx, key, s.presignTTL)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign profile image url")
		}
		return url, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeNotFound, "profile image not found")
}

// SanitizeUsername strips everything outside [a-zA-Z0-9_-].
func SanitizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func generateUsername() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand only fails when the platform source is broken
		n = big.NewInt(0)
	}
	return fmt.Sprintf("user-%06d", n.Int64())
}
