package repository

import (
	"context"
	"strings"

	"inventrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryFilter struct {
	Search string
	Page   Page
}

type CategoryRepository interface {
	List(ctx context.Context, filter CategoryFilter) (*Paginated[model.Category], error)
	All(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	NameTaken(ctx context.Context, name string, exceptID *uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
	Create(tx *gorm.DB, category *model.Category) error
	Update(tx *gorm.DB, category *model.Category) error
	Delete(tx *gorm.DB, id uuid.UUID) error
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db}
}

func (r *categoryRepo) List(ctx context.Context, filter CategoryFilter) (*Paginated[model.Category], error) {
	query := r.db.WithContext(ctx).Model(&model.Category{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	page, err := paginate[model.Category](query, filter.Page, "created_at DESC")
	if err != nil {
		return nil, err
	}
	if err := r.fillProductCounts(ctx, page.Data); err != nil {
		return nil, err
	}
	return page, nil
}

func (r *categoryRepo) fillProductCounts(ctx context.Context, categories []model.Category) error {
	if len(categories) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}

	var rows []struct {
		CategoryID uuid.UUID
		Total      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("category_id, COUNT(*) AS total").
		Where("category_id IN ?", ids).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Total
	}
	for i := range categories {
		categories[i].ProductsCount = counts[categories[i].ID]
	}
	return nil
}

func (r *categoryRepo) All(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) NameTaken(ctx context.Context, name string, exceptID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != nil {
		query = query.Where("id <> ?", *exceptID)
	}
	var n int64
	err := query.Count(&n).Error
	return n > 0, err
}

func (r *categoryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).Count(&n).Error
	return n, err
}

func (r *categoryRepo) Create(tx *gorm.DB, category *model.Category) error {
	return tx.Create(category).Error
}

func (r *categoryRepo) Update(tx *gorm.DB, category *model.Category) error {
	return tx.Model(category).Select("name", "description", "updated_by", "updated_at").Updates(category).Error
}

func (r *categoryRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Category{}, "id = ?", id).Error
}
