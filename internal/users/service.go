package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/identity"
	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/utils"
)

// Store is the persistence surface for user accounts.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

// Service implements signup, login, and profile management for users.
type Service struct {
	store Store
	jwt   *identity.JWTService
}

// NewService creates the users service.
func NewService(store Store, jwt *identity.JWTService) *Service {
	return &Service{store: store, jwt: jwt}
}

// SignUpParams are the fields for registering a user.
type SignUpParams struct {
	Username string
	Email    string
	Phone    *string
	Password string
}

// SignUp registers a user. Email and username are stored lower-cased;
// collisions with active accounts are rejected.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*models.User, error) {
	if params.Username == "" || params.Email == "" || params.Password == "" {
		return nil, apperr.Validation("PARAM_SCHEMA_WARN", "username, email, and password are required")
	}

	hash, err := utils.HashPassword(params.Password)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	u := &models.User{
		Username: strings.ToLower(params.Username),
		Email:    strings.ToLower(params.Email),
		Phone:    params.Phone,
		Password: hash,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicateField {
			return nil, err
		}
		return nil, apperr.Unexpected(err)
	}
	return u, nil
}

// Login authenticates by email and password and returns the user with a
// signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.store.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, "", apperr.Unexpected(err)
	}
	if u == nil || !utils.CheckPassword(password, u.Password) {
		return nil, "", apperr.PermissionDenied("AUTH_FAILED", "invalid email or password")
	}
	token, err := s.jwt.Generate(identity.UserActor(u.ID), u.Email)
	if err != nil {
		return nil, "", apperr.Unexpected(err)
	}
	return u, token, nil
}

// Profile returns the user's account.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if u == nil {
		return nil, apperr.NotFound("USER_NOT_FOUND", "user does not exist")
	}
	return u, nil
}

// UpdateProfileParams are the mutable profile fields.
type UpdateProfileParams struct {
	Username *string
	Email    *string
	Phone    *string
}

// UpdateProfile updates the user's own account fields.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*models.User, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if params.Username != nil {
		u.Username = strings.ToLower(*params.Username)
	}
	if params.Email != nil {
		u.Email = strings.ToLower(*params.Email)
	}
	if params.Phone != nil {
		u.Phone = params.Phone
	}
	if err := s.store.Update(ctx, u); err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicateField {
			return nil, err
		}
		return nil, apperr.Unexpected(err)
	}
	return u, nil
}
