package repository

import (
	"context"

	"inventrack/internal/model"

	"gorm.io/gorm"
)

type PrivilegeRepository interface {
	FindByCodes(ctx context.Context, codes []string) ([]model.Privilege, error)
	FindAll(ctx context.Context) ([]model.Privilege, error)
	SeedDefaults(ctx context.Context) error
}

type privilegeRepo struct {
	db *gorm.DB
}

func NewPrivilegeRepo(db *gorm.DB) PrivilegeRepository {
	return &privilegeRepo{db}
}

func (r *privilegeRepo) FindByCodes(ctx context.Context, codes []string) ([]model.Privilege, error) {
	var privileges []model.Privilege
	if len(codes) == 0 {
		return privileges, nil
	}
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&privileges).Error; err != nil {
		return nil, err
	}
	return privileges, nil
}

func (r *privilegeRepo) FindAll(ctx context.Context) ([]model.Privilege, error) {
	var privileges []model.Privilege
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&privileges).Error; err != nil {
		return nil, err
	}
	return privileges, nil
}

// SeedDefaults creates the default privileges that don't exist yet
func (r *privilegeRepo) SeedDefaults(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	for _, p := range model.DefaultPrivileges {
		privilege := model.Privilege{}
		err := db.Where(model.Privilege{Code: p.Code}).
			Attrs(model.Privilege{Name: p.Name}).
			FirstOrCreate(&privilege).Error
		if err != nil {
			return err
		}
	}
	return nil
}
