package service

import (
	"context"
	"errors"
	"strings"

	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=255"`
	RoleID   uint   `json:"role_id" validate:"required"`
}

type UpdateUserRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	FullName string  `json:"full_name" validate:"required,max=255"`
	RoleID   uint    `json:"role_id" validate:"required"`
	IsActive *bool   `json:"is_active"`
}

type UpdatePrivilegesRequest struct {
	Privileges []string `json:"privileges" validate:"required"`
}

type UserService interface {
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	CreateUser(ctx context.Context, req *CreateUserRequest, actor Actor) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req *UpdateUserRequest, actor Actor) (*model.UserResponse, error)
	UpdateUserPrivileges(ctx context.Context, id uuid.UUID, req *UpdatePrivilegesRequest, actor Actor) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID, actor Actor) error
	ListRoles(ctx context.Context) ([]model.Role, error)
	ListPrivileges(ctx context.Context) ([]model.Privilege, error)
	// SeedDefaults creates privileges, roles and the first master admin
	SeedDefaults(ctx context.Context, adminEmail, adminPassword string) error
}

type userService struct {
	users      repository.UserRepository
	privileges repository.PrivilegeRepository
	roles      repository.RoleRepository
}

func NewUserService(users repository.UserRepository, privileges repository.PrivilegeRepository, roles repository.RoleRepository) UserService {
	return &userService{users: users, privileges: privileges, roles: roles}
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, storageErr("list users", err, "User")
	}
	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get user", err, "User")
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) role(ctx context.Context, id uint) (*model.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewValidationError("role_id", "The selected role id is invalid.")
	}
	if err != nil {
		return nil, storageErr("get role", err, "Role")
	}
	return role, nil
}

func (s *userService) checkEmail(ctx context.Context, email string, exceptID *uuid.UUID) error {
	taken, err := s.users.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return storageErr("check email", err, "User")
	}
	if taken {
		return NewValidationError("email", "The email has already been taken.")
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest, actor Actor) (*model.UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if fields := validator.FieldErrors(req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	if err := s.checkEmail(ctx, req.Email, nil); err != nil {
		return nil, err
	}
	role, err := s.role(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		RoleID:   &role.ID,
		IsActive: true,
	}
	user.CreatedBy = actor.ID.String()
	user.UpdatedBy = actor.ID.String()
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}

	// Privileges start as a copy of the role's set
	if err := s.users.Create(ctx, user, role.Privileges); err != nil {
		return nil, storageErr("create user", err, "User")
	}
	return s.GetUserByID(ctx, user.ID)
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, req *UpdateUserRequest, actor Actor) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get user", err, "User")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if fields := validator.FieldErrors(req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	if err := s.checkEmail(ctx, req.Email, &id); err != nil {
		return nil, err
	}
	role, err := s.role(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}
	if id == actor.ID && req.IsActive != nil && !*req.IsActive {
		return nil, NewValidationError("is_active", "You cannot deactivate your own account.")
	}

	// A role change resets privileges to the new role's set
	var privileges []model.Privilege
	if user.RoleID == nil || *user.RoleID != role.ID {
		privileges = role.Privileges
		if privileges == nil {
			privileges = []model.Privilege{}
		}
	}

	user.Email = req.Email
	user.FullName = strings.TrimSpace(req.FullName)
	user.RoleID = &role.ID
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedBy = actor.ID.String()

	if err := s.users.Update(ctx, user, privileges); err != nil {
		return nil, storageErr("update user", err, "User")
	}
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, err
		}
		if err := s.users.UpdatePassword(ctx, id, user.Password); err != nil {
			return nil, storageErr("update password", err, "User")
		}
	}
	return s.GetUserByID(ctx, id)
}

func (s *userService) UpdateUserPrivileges(ctx context.Context, id uuid.UUID, req *UpdatePrivilegesRequest, actor Actor) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get user", err, "User")
	}
	if req.Privileges == nil {
		return nil, NewValidationError("privileges", "The privileges field is required.")
	}

	privileges, err := s.privileges.FindByCodes(ctx, req.Privileges)
	if err != nil {
		return nil, storageErr("find privileges", err, "Privilege")
	}
	if len(privileges) != len(uniqueStrings(req.Privileges)) {
		return nil, NewValidationError("privileges", "The selected privileges is invalid.")
	}
	if privileges == nil {
		privileges = []model.Privilege{}
	}

	user.UpdatedBy = actor.ID.String()
	if err := s.users.Update(ctx, user, privileges); err != nil {
		return nil, storageErr("update privileges", err, "User")
	}
	return s.GetUserByID(ctx, id)
}

// DeleteUser refuses users that movements or log entries point at; those
// can be deactivated instead.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID, actor Actor) error {
	if id == actor.ID {
		return NewValidationError("user", "You cannot delete your own account.")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return storageErr("get user", err, "User")
	}
	used, err := s.users.HasActivity(ctx, id)
	if err != nil {
		return storageErr("check user activity", err, "User")
	}
	if used {
		return NewValidationError("user", "The user has recorded activity and cannot be deleted. Deactivate the account instead.")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return storageErr("delete user", err, "User")
	}
	return nil
}

func (s *userService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.FindAll(ctx)
	if err != nil {
		return nil, storageErr("list roles", err, "Role")
	}
	return roles, nil
}

func (s *userService) ListPrivileges(ctx context.Context) ([]model.Privilege, error) {
	privileges, err := s.privileges.FindAll(ctx)
	if err != nil {
		return nil, storageErr("list privileges", err, "Privilege")
	}
	return privileges, nil
}

func (s *userService) SeedDefaults(ctx context.Context, adminEmail, adminPassword string) error {
	if err := s.privileges.SeedDefaults(ctx); err != nil {
		return err
	}
	if err := s.roles.SeedDefaults(ctx); err != nil {
		return err
	}

	adminEmail = strings.ToLower(strings.TrimSpace(adminEmail))
	if adminEmail == "" || adminPassword == "" {
		zap.L().Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	_, err := s.users.FindByEmail(ctx, adminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	role, err := s.roles.FindByCode(ctx, model.RoleMasterAdmin)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:    adminEmail,
		FullName: "Master Admin",
		RoleID:   &role.ID,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(adminPassword); err != nil {
		return err
	}
	if err := s.users.Create(ctx, admin, role.Privileges); err != nil {
		return err
	}
	zap.L().Info("master admin created", zap.String("email", adminEmail))
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
