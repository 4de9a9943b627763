package repository

import (
	"context"
	"time"

	"inventrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionFilter struct {
	Type      model.TransactionType
	ProductID *uuid.UUID
	Dates     DateRange
	Page      Page
}

// Movement is the minimal projection used for time-bucketed aggregates
type Movement struct {
	Type      model.TransactionType
	Quantity  int
	CreatedAt time.Time
}

type TransactionRepository interface {
	Create(tx *gorm.DB, transaction *model.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindForReversal(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error)
	Delete(tx *gorm.DB, id uuid.UUID) error
	DeleteByProduct(tx *gorm.DB, productID uuid.UUID) error
	DeleteByCategory(tx *gorm.DB, categoryID uuid.UUID) error
	List(ctx context.Context, filter TransactionFilter) (*Paginated[model.Transaction], error)
	ListAll(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	Recent(ctx context.Context, limit int) ([]model.Transaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
	SumByType(ctx context.Context, dates DateRange) (totalIn, totalOut int64, err error)
	MovementsSince(ctx context.Context, since time.Time) ([]Movement, error)
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) Create(tx *gorm.DB, transaction *model.Transaction) error {
	return tx.Omit("Product", "User").Create(transaction).Error
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Product.Category").
		Preload("User").
		First(&transaction, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// FindForReversal locks the movement row inside the caller's tx so concurrent
// reversals of the same movement serialize
func (r *transactionRepo) FindForReversal(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&transaction, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// Delete returns gorm.ErrRecordNotFound when no row was removed
func (r *transactionRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	result := tx.Delete(&model.Transaction{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *transactionRepo) DeleteByProduct(tx *gorm.DB, productID uuid.UUID) error {
	return tx.Where("product_id = ?", productID).Delete(&model.Transaction{}).Error
}

func (r *transactionRepo) DeleteByCategory(tx *gorm.DB, categoryID uuid.UUID) error {
	products := tx.Model(&model.Product{}).Select("id").Where("category_id = ?", categoryID)
	return tx.Where("product_id IN (?)", products).Delete(&model.Transaction{}).Error
}

func (r *transactionRepo) filtered(ctx context.Context, filter TransactionFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Transaction{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	return filter.Dates.apply(query, "created_at")
}

func (r *transactionRepo) List(ctx context.Context, filter TransactionFilter) (*Paginated[model.Transaction], error) {
	return paginate[model.Transaction](r.filtered(ctx, filter), filter.Page, "created_at DESC", "Product.Category", "User")
}

func (r *transactionRepo) ListAll(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.filtered(ctx, filter).
		Preload("Product.Category").
		Preload("User").
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) Recent(ctx context.Context, limit int) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) Count(ctx context.Context, filter TransactionFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

func (r *transactionRepo) SumByType(ctx context.Context, dates DateRange) (int64, int64, error) {
	var totals struct {
		TotalIn  int64
		TotalOut int64
	}
	query := dates.apply(r.db.WithContext(ctx).Model(&model.Transaction{}), "created_at")
	err := query.Select(
		"COALESCE(SUM(CASE WHEN type = ? THEN quantity ELSE 0 END), 0) AS total_in, "+
			"COALESCE(SUM(CASE WHEN type = ? THEN quantity ELSE 0 END), 0) AS total_out",
		model.TxIn, model.TxOut,
	).Scan(&totals).Error
	return totals.TotalIn, totals.TotalOut, err
}

// MovementsSince returns every movement created at or after since. Bucketing
// by day or month happens in Go so it does not depend on SQL date functions.
func (r *transactionRepo) MovementsSince(ctx context.Context, since time.Time) ([]Movement, error) {
	var movements []Movement
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select("type, quantity, created_at").
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Scan(&movements).Error
	return movements, err
}
