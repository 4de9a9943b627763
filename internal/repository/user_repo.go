package repository

import (
	"context"

	"inventrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	EmailTaken(ctx context.Context, email string, exceptID *uuid.UUID) (bool, error)
	HasActivity(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, user *model.User, privileges []model.Privilege) error
	Update(ctx context.Context, user *model.User, privileges []model.Privilege) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
	UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Preload("Role").Preload("Privileges").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Preload("Role").Preload("Privileges").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Preload("Role").Preload("Privileges").Order("full_name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) EmailTaken(ctx context.Context, email string, exceptID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email)
	if exceptID != nil {
		query = query.Where("id <> ?", *exceptID)
	}
	var n int64
	err := query.Count(&n).Error
	return n > 0, err
}

// HasActivity reports whether the user is referenced by movements or log entries
func (r *userRepo) HasActivity(ctx context.Context, id uuid.UUID) (bool, error) {
	db := r.db.WithContext(ctx)
	var n int64
	if err := db.Model(&model.Transaction{}).Where("user_id = ?", id).Count(&n).Error; err != nil || n > 0 {
		return n > 0, err
	}
	if err := db.Model(&model.ActivityLog{}).Where("user_id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User, privileges []model.Privilege) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		if len(privileges) == 0 {
			return nil
		}
		return tx.Model(user).Association("Privileges").Replace(privileges)
	})
}

func (r *userRepo) Update(ctx context.Context, user *model.User, privileges []model.Privilege) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(user).
			Select("email", "full_name", "role_id", "is_active", "updated_by", "updated_at").
			Updates(user).Error
		if err != nil {
			return err
		}
		switch {
		case privileges == nil:
			return nil
		case len(privileges) == 0:
			return tx.Model(user).Association("Privileges").Clear()
		}
		return tx.Model(user).Association("Privileges").Replace(privileges)
	})
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := model.User{BaseModel: model.BaseModel{ID: id}}
		if err := tx.Model(&user).Association("Privileges").Clear(); err != nil {
			return err
		}
		return tx.Delete(&model.User{}, "id = ?", id).Error
	})
}

func (r *userRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password", hashedPassword).Error
}

func (r *userRepo) UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("token_version", version).Error
}
