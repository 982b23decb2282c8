package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// AuthService authenticates agents and issues bearer tokens.
type AuthService struct {
	store      repository.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// UserCreateInput describes a new agent account.
type UserCreateInput struct {
	Name       string
	Email      string
	Password   string
	Signature  string
	EmployeeID *string
	Role       domain.UserRole
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, store repository.Store, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:      store,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// CreateUser registers an agent account.
func (s *AuthService) CreateUser(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, errorutil.NewValidationError("email and password are required", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.UserRoleAgent
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, errorutil.NewValidationError(err.Error(), map[string]any{"field": "password"})
	}
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Signature:    input.Signature,
		EmployeeID:   input.EmployeeID,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	err = s.store.WithinTx(ctx, func(u repository.Unit) error {
		if _, err := u.Users().GetByEmail(ctx, email); err == nil {
			return errorutil.NewConflict("email already registered", map[string]any{"email": email})
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return u.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureUser creates the account unless one with the same email exists.
func (s *AuthService) EnsureUser(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	user, err := s.CreateUser(ctx, input)
	if err == nil {
		s.logger.Info("bootstrap user created", zap.String("email", user.Email))
		return user, nil
	}
	var domainErr *errorutil.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == errorutil.CodeConflict {
		return s.userByEmail(ctx, input.Email)
	}
	return nil, err
}

// Login authenticates an agent by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errorutil.ErrNotFound) {
			return nil, "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, errorutil.NewUnauthorized("user suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoadUser returns the agent with the given id.
func (s *AuthService) LoadUser(ctx context.Context, id string) (*domain.User, error) {
	var user *domain.User
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		user, err = u.Users().GetByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorutil.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user *domain.User
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		user, err = u.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorutil.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
