package repository

import (
	"context"
	"strings"

	"inventrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductFilter struct {
	Search     string
	CategoryID *uuid.UUID
	Stock      string // model.StockLow, model.StockOut or model.StockAvailable
	Threshold  int
	Page       Page
}

type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) (*Paginated[model.Product], error)
	AllWithCategory(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	ImagesByCategory(tx *gorm.DB, categoryID uuid.UUID) ([]string, error)
	Count(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
	LowestStock(ctx context.Context, threshold, limit int) ([]model.Product, error)
	Create(tx *gorm.DB, product *model.Product) error
	Update(tx *gorm.DB, product *model.Product) error
	AdjustStock(tx *gorm.DB, id uuid.UUID, delta int, updatedBy string) error
	Delete(tx *gorm.DB, id uuid.UUID) error
	DeleteByCategory(tx *gorm.DB, categoryID uuid.UUID) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) (*Paginated[model.Product], error) {
	query := r.db.WithContext(ctx).Model(&model.Product{})

	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	switch filter.Stock {
	case model.StockLow:
		query = query.Where("stock > 0 AND stock <= ?", filter.Threshold)
	case model.StockOut:
		query = query.Where("stock = 0")
	case model.StockAvailable:
		query = query.Where("stock > ?", filter.Threshold)
	}

	return paginate[model.Product](query, filter.Page, "created_at DESC", "Category")
}

func (r *productRepo) AllWithCategory(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Preload("Category").Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetail loads the product with its category and its movements, newest first
func (r *productRepo) FindDetail(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Transactions.User").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindForUpdate reads the product row under SELECT ... FOR UPDATE. Stores
// without row locks ignore the locking clause.
func (r *productRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) ImagesByCategory(tx *gorm.DB, categoryID uuid.UUID) ([]string, error) {
	var images []string
	err := tx.Model(&model.Product{}).
		Where("category_id = ? AND image IS NOT NULL", categoryID).
		Pluck("image", &images).Error
	return images, err
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error
	return n, err
}

func (r *productRepo) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("stock <= ?", threshold).Count(&n).Error
	return n, err
}

func (r *productRepo) LowestStock(ctx context.Context, threshold, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("stock <= ?", threshold).
		Order("stock ASC").Order("name ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	return tx.Omit(clause.Associations).Create(product).Error
}

func (r *productRepo) Update(tx *gorm.DB, product *model.Product) error {
	return tx.Model(product).
		Select("category_id", "name", "description", "image", "stock", "price", "updated_by", "updated_at").
		Updates(product).Error
}

// AdjustStock applies delta to the stock in a single guarded statement.
// It runs on the caller's tx so it commits or rolls back with the movement.
func (r *productRepo) AdjustStock(tx *gorm.DB, id uuid.UUID, delta int, updatedBy string) error {
	result := tx.Model(&model.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_by": updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNegativeStock
	}
	return nil
}

func (r *productRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Product{}, "id = ?", id).Error
}

func (r *productRepo) DeleteByCategory(tx *gorm.DB, categoryID uuid.UUID) error {
	return tx.Where("category_id = ?", categoryID).Delete(&model.Product{}).Error
}
