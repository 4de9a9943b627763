package repository

import (
	"context"

	"inventrack/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindAll(ctx context.Context) ([]model.Role, error)
	FindByID(ctx context.Context, id uint) (*model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	SeedDefaults(ctx context.Context) error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Preload("Privileges").Order("id ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Preload("Privileges").First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Preload("Privileges").Where("code = ?", code).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// SeedDefaults creates missing default roles and syncs their privilege sets.
// Privileges must be seeded first.
func (r *roleRepo) SeedDefaults(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	for _, def := range model.DefaultRoles {
		role := model.Role{Code: def.Code}
		err := db.Where(model.Role{Code: def.Code}).
			Attrs(model.Role{Name: def.Name, Description: def.Description}).
			FirstOrCreate(&role).Error
		if err != nil {
			return err
		}

		var privileges []model.Privilege
		if err := db.Where("code IN ?", model.DefaultRolePrivileges(def.Code)).Find(&privileges).Error; err != nil {
			return err
		}
		if err := db.Model(&role).Association("Privileges").Replace(privileges); err != nil {
			return err
		}
	}
	return nil
}
