package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"inventrack/internal/audit"
	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/internal/storage"
	"inventrack/internal/ws"
	"inventrack/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

type ProductRequest struct {
	CategoryID  string           `json:"category_id" validate:"required,uuid"`
	Name        string           `json:"name" validate:"required,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Stock       *int             `json:"stock" validate:"required,gte=0,lte=1000000000"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0"`
}

type ProductQuery struct {
	Search   string
	Category string
	Stock    string
	Page     int
}

// ImageStore keeps product image files
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Delete(name string) error
}

type CatalogService interface {
	ListCategories(ctx context.Context, search string, page int) (*repository.Paginated[model.Category], error)
	AllCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	CreateCategory(ctx context.Context, req *CategoryRequest, actor Actor) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest, actor Actor) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID, actor Actor) error

	ListProducts(ctx context.Context, q ProductQuery) (*repository.Paginated[model.Product], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	CreateProduct(ctx context.Context, req *ProductRequest, actor Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest, actor Actor) (*model.Product, error)
	SetProductImage(ctx context.Context, id uuid.UUID, image io.Reader, actor Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error
}

type catalogService struct {
	db           *gorm.DB
	categories   repository.CategoryRepository
	products     repository.ProductRepository
	transactions repository.TransactionRepository
	recorder     audit.Recorder
	images       ImageStore
	threshold    int
	fx           Effects
}

func NewCatalogService(
	db *gorm.DB,
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	transactions repository.TransactionRepository,
	recorder audit.Recorder,
	images ImageStore,
	lowStockThreshold int,
	fx Effects,
) CatalogService {
	return &catalogService{
		db:           db,
		categories:   categories,
		products:     products,
		transactions: transactions,
		recorder:     recorder,
		images:       images,
		threshold:    lowStockThreshold,
		fx:           fx,
	}
}

// --- Categories ---

func (s *catalogService) ListCategories(ctx context.Context, search string, page int) (*repository.Paginated[model.Category], error) {
	result, err := s.categories.List(ctx, repository.CategoryFilter{
		Search: search,
		Page:   repository.Page{Number: page, PerPage: repository.DefaultPerPage},
	})
	if err != nil {
		return nil, storageErr("list categories", err, "Category")
	}
	return result, nil
}

func (s *catalogService) AllCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.All(ctx)
	if err != nil {
		return nil, storageErr("list categories", err, "Category")
	}
	return categories, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get category", err, "Category")
	}
	return category, nil
}

func (s *catalogService) validateCategory(ctx context.Context, req *CategoryRequest, exceptID *uuid.UUID) error {
	req.Name = strings.TrimSpace(req.Name)
	if fields := validator.FieldErrors(req); fields != nil {
		return &ValidationError{Fields: fields}
	}
	taken, err := s.categories.NameTaken(ctx, req.Name, exceptID)
	if err != nil {
		return storageErr("check category name", err, "Category")
	}
	if taken {
		return NewValidationError("name", "The name has already been taken.")
	}
	return nil
}

func (s *catalogService) CreateCategory(ctx context.Context, req *CategoryRequest, actor Actor) (*model.Category, error) {
	if err := s.validateCategory(ctx, req, nil); err != nil {
		return nil, err
	}

	category := &model.Category{Name: req.Name, Description: trimmedOrNil(req.Description)}
	category.CreatedBy = actor.ID.String()
	category.UpdatedBy = actor.ID.String()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.categories.Create(tx, category); err != nil {
			return err
		}
		return s.record(tx, actor, model.ActionCreate, model.SubjectCategory, category.ID, "Created category: "+category.Name)
	})
	if err != nil {
		return nil, storageErr("create category", err, "Category")
	}

	s.fx.invalidateDashboard(ctx)
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest, actor Actor) (*model.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get category", err, "Category")
	}
	if err := s.validateCategory(ctx, req, &id); err != nil {
		return nil, err
	}

	category.Name = req.Name
	category.Description = trimmedOrNil(req.Description)
	category.UpdatedBy = actor.ID.String()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.categories.Update(tx, category); err != nil {
			return err
		}
		return s.record(tx, actor, model.ActionUpdate, model.SubjectCategory, category.ID, "Updated category: "+category.Name)
	})
	if err != nil {
		return nil, storageErr("update category", err, "Category")
	}
	return category, nil
}

// DeleteCategory removes the category with its products and their movements
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID, actor Actor) error {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return storageErr("get category", err, "Category")
	}

	var images []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if images, err = s.products.ImagesByCategory(tx, id); err != nil {
			return err
		}
		if err := s.record(tx, actor, model.ActionDelete, model.SubjectCategory, id, "Deleted category: "+category.Name); err != nil {
			return err
		}
		if err := s.transactions.DeleteByCategory(tx, id); err != nil {
			return err
		}
		if err := s.products.DeleteByCategory(tx, id); err != nil {
			return err
		}
		return s.categories.Delete(tx, id)
	})
	if err != nil {
		return storageErr("delete category", err, "Category")
	}

	for _, image := range images {
		s.removeImage(image)
	}
	s.fx.invalidateDashboard(ctx)
	return nil
}

// --- Products ---

func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) (*repository.Paginated[model.Product], error) {
	filter := repository.ProductFilter{
		Search:    q.Search,
		Threshold: s.threshold,
		Page:      repository.Page{Number: q.Page, PerPage: repository.DefaultPerPage},
	}

	switch q.Stock {
	case "", model.StockLow, model.StockOut, model.StockAvailable:
		filter.Stock = q.Stock
	default:
		return nil, NewValidationError("stock", "The selected stock is invalid.")
	}
	categoryID, err := parseOptionalID("category", q.Category)
	if err != nil {
		return nil, err
	}
	filter.CategoryID = categoryID

	result, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, storageErr("list products", err, "Product")
	}
	return result, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.products.FindDetail(ctx, id)
	if err != nil {
		return nil, storageErr("get product", err, "Product")
	}
	return product, nil
}

func (s *catalogService) validateProduct(ctx context.Context, req *ProductRequest) (uuid.UUID, error) {
	req.Name = strings.TrimSpace(req.Name)
	if fields := validator.FieldErrors(req); fields != nil {
		return uuid.Nil, &ValidationError{Fields: fields}
	}
	categoryID := uuid.MustParse(req.CategoryID)
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, NewValidationError("category_id", "The selected category id is invalid.")
		}
		return uuid.Nil, storageErr("get category", err, "Category")
	}
	return categoryID, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, req *ProductRequest, actor Actor) (*model.Product, error) {
	categoryID, err := s.validateProduct(ctx, req)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: trimmedOrNil(req.Description),
		Stock:       *req.Stock,
		Price:       req.Price.Round(2),
	}
	product.CreatedBy = actor.ID.String()
	product.UpdatedBy = actor.ID.String()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.products.Create(tx, product); err != nil {
			return err
		}
		return s.record(tx, actor, model.ActionCreate, model.SubjectProduct, product.ID, "Created product: "+product.Name)
	})
	if err != nil {
		return nil, storageErr("create product", err, "Product")
	}

	created, err := s.products.FindByID(ctx, product.ID)
	if err != nil {
		return nil, storageErr("reload product", err, "Product")
	}

	s.fx.invalidateDashboard(ctx)
	s.fx.publish(ws.Event{
		Action: ws.ActionProductCreated,
		Data: map[string]interface{}{
			"id":    created.ID,
			"name":  created.Name,
			"stock": created.Stock,
			"price": created.Price,
		},
		User:    actor.wsActor(),
		Message: fmt.Sprintf("%s created product '%s'", actor.Name, created.Name),
	})
	return created, nil
}

// UpdateProduct may set stock directly. This is the only stock write outside
// the ledger and it is what the reversal guard protects against.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest, actor Actor) (*model.Product, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, storageErr("get product", err, "Product")
	}
	categoryID, err := s.validateProduct(ctx, req)
	if err != nil {
		return nil, err
	}

	var oldStock int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.FindForUpdate(tx, id)
		if err != nil {
			return err
		}
		oldStock = product.Stock

		product.CategoryID = categoryID
		product.Name = req.Name
		product.Description = trimmedOrNil(req.Description)
		product.Stock = *req.Stock
		product.Price = req.Price.Round(2)
		product.UpdatedBy = actor.ID.String()

		if err := s.products.Update(tx, product); err != nil {
			return err
		}
		return s.record(tx, actor, model.ActionUpdate, model.SubjectProduct, product.ID, "Updated product: "+product.Name)
	})
	if err != nil {
		return nil, storageErr("update product", err, "Product")
	}

	updated, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("reload product", err, "Product")
	}

	s.fx.invalidateDashboard(ctx)
	s.fx.publish(ws.Event{
		Action: ws.ActionProductUpdated,
		Data: map[string]interface{}{
			"id":        updated.ID,
			"name":      updated.Name,
			"old_stock": oldStock,
			"new_stock": updated.Stock,
			"price":     updated.Price,
		},
		User:    actor.wsActor(),
		Message: fmt.Sprintf("%s updated product '%s'", actor.Name, updated.Name),
	})
	return updated, nil
}

// SetProductImage stores a new image and swaps it in. The previous file is
// removed only once the row points at the new one.
func (s *catalogService) SetProductImage(ctx context.Context, id uuid.UUID, image io.Reader, actor Actor) (*model.Product, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, storageErr("get product", err, "Product")
	}

	name, err := s.images.Save(image)
	switch {
	case errors.Is(err, storage.ErrImageTooLarge):
		return nil, NewValidationError("image", "The image field must not be greater than 2048 kilobytes.")
	case errors.Is(err, storage.ErrNotAnImage):
		return nil, NewValidationError("image", "The image field must be an image.")
	case err != nil:
		return nil, &StorageError{Op: "save image", Err: err}
	}

	var previous *string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.FindForUpdate(tx, id)
		if err != nil {
			return err
		}
		previous = product.Image
		product.Image = &name
		product.UpdatedBy = actor.ID.String()

		if err := s.products.Update(tx, product); err != nil {
			return err
		}
		return s.record(tx, actor, model.ActionUpdate, model.SubjectProduct, product.ID, "Updated product: "+product.Name)
	})
	if err != nil {
		s.removeImage(name)
		return nil, storageErr("set product image", err, "Product")
	}
	if previous != nil {
		s.removeImage(*previous)
	}

	updated, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("reload product", err, "Product")
	}
	s.fx.invalidateDashboard(ctx)
	return updated, nil
}

// DeleteProduct removes the product, its movements and its image file
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error {
	var deleted *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.FindForUpdate(tx, id)
		if err != nil {
			return err
		}
		deleted = product

		if err := s.record(tx, actor, model.ActionDelete, model.SubjectProduct, product.ID, "Deleted product: "+product.Name); err != nil {
			return err
		}
		if err := s.transactions.DeleteByProduct(tx, id); err != nil {
			return err
		}
		return s.products.Delete(tx, id)
	})
	if err != nil {
		return storageErr("delete product", err, "Product")
	}

	if deleted.Image != nil {
		s.removeImage(*deleted.Image)
	}
	s.fx.invalidateDashboard(ctx)
	s.fx.publish(ws.Event{
		Action:  ws.ActionProductDeleted,
		Data:    map[string]interface{}{"id": deleted.ID, "name": deleted.Name},
		User:    actor.wsActor(),
		Message: fmt.Sprintf("%s deleted product '%s'", actor.Name, deleted.Name),
	})
	return nil
}

func (s *catalogService) record(tx *gorm.DB, actor Actor, action model.AuditAction, subject string, id uuid.UUID, description string) error {
	_, err := s.recorder.Record(tx, audit.Entry{
		UserID:      actor.ID,
		Action:      action,
		ModelType:   subject,
		ModelID:     id,
		Description: description,
	})
	return err
}

func (s *catalogService) removeImage(name string) {
	if s.images == nil {
		return
	}
	if err := s.images.Delete(name); err != nil {
		zap.L().Warn("product image cleanup failed", zap.String("image", name), zap.Error(err))
	}
}
