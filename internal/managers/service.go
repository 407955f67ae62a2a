package managers

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/identity"
	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/utils"
)

// Store is the persistence surface for manager accounts.
type Store interface {
	Create(ctx context.Context, m *models.Manager) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Manager, error)
	FindByEmail(ctx context.Context, email string) (*models.Manager, error)
}

// Service implements signup and login for platform managers.
type Service struct {
	store Store
	jwt   *identity.JWTService
}

// NewService creates the managers service.
func NewService(store Store, jwt *identity.JWTService) *Service {
	return &Service{store: store, jwt: jwt}
}

// SignUpParams are the fields for registering a manager.
type SignUpParams struct {
	Username string
	Email    string
	Phone    *string
	Password string
}

// SignUp registers a manager account.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*models.Manager, error) {
	if params.Username == "" || params.Email == "" || params.Password == "" {
		return nil, apperr.Validation("PARAM_SCHEMA_WARN", "username, email, and password are required")
	}

	hash, err := utils.HashPassword(params.Password)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	m := &models.Manager{
		Username: strings.ToLower(params.Username),
		Email:    strings.ToLower(params.Email),
		Phone:    params.Phone,
		Password: hash,
	}
	if err := s.store.Create(ctx, m); err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicateField {
			return nil, err
		}
		return nil, apperr.Unexpected(err)
	}
	return m, nil
}

// Login authenticates a manager and returns a signed token carrying the
// manager actor type.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Manager, string, error) {
	m, err := s.store.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, "", apperr.Unexpected(err)
	}
	if m == nil || !utils.CheckPassword(password, m.Password) {
		return nil, "", apperr.PermissionDenied("AUTH_FAILED", "invalid email or password")
	}
	token, err := s.jwt.Generate(identity.ManagerActor(m.ID), m.Email)
	if err != nil {
		return nil, "", apperr.Unexpected(err)
	}
	return m, token, nil
}

// Profile returns the manager's account.
func (s *Service) Profile(ctx context.Context, managerID uuid.UUID) (*models.Manager, error) {
	m, err := s.store.FindByID(ctx, managerID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if m == nil {
		return nil, apperr.NotFound("MANAGER_NOT_FOUND", "manager does not exist")
	}
	return m, nil
}
