package service

import (
	"context"
	"errors"
	"strings"

	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/pkg/jwt"
	"inventrack/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type TokenValidationResponse struct {
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenValidationResponse, error)
	// Authenticate checks the claims of a bearer token against the stored user
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error
}

type authService struct {
	users  repository.UserRepository
	tokens *jwt.Manager
}

func NewAuthService(users repository.UserRepository, tokens *jwt.Manager) AuthService {
	return &authService{users: users, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if fields := validator.FieldErrors(req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storageErr("find user", err, "User")
	}
	if !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// Single session: a new version invalidates every older token
	version := uuid.NewString()
	if err := s.users.UpdateTokenVersion(ctx, user.ID, version); err != nil {
		return nil, storageErr("rotate session", err, "User")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, user.RoleCode(), user.PrivilegeCodes(), version)
	if err != nil {
		return nil, err
	}

	zap.L().Info("user logged in", zap.String("user_id", user.ID.String()))
	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.PrivilegeCodes(),
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, _, err := s.check(ctx, token)
	return claims, err
}

func (s *authService) check(ctx context.Context, token string) (*jwt.Claims, *model.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, jwt.ErrInvalidToken
	}
	if err != nil {
		return nil, nil, storageErr("find user", err, "User")
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, ErrSessionReplaced
	}

	// Privileges come from the database so revocations apply immediately
	claims.Privileges = user.PrivilegeCodes()
	claims.RoleCode = user.RoleCode()
	return claims, user, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenValidationResponse, error) {
	_, user, err := s.check(ctx, token)
	if err != nil {
		return nil, err
	}
	return &TokenValidationResponse{
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.PrivilegeCodes(),
	}, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	if fields := validator.FieldErrors(req); fields != nil {
		return &ValidationError{Fields: fields}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return storageErr("find user", err, "User")
	}
	if !user.CheckPassword(req.CurrentPassword) {
		return NewValidationError("current_password", ErrWrongPassword.Error())
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return storageErr("update password", err, "User")
	}
	return nil
}
