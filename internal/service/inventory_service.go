package service

import (
	"context"
	"errors"
	"fmt"

	"inventrack/internal/audit"
	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/internal/ws"
	"inventrack/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxStock is the largest stock level a product may hold
const MaxStock = 1000000000

// MovementRequest is the body of POST /transactions
type MovementRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Type      string  `json:"type" validate:"required,oneof=in out"`
	Quantity  *int    `json:"quantity" validate:"required,gte=1,lte=1000000000"`
	Notes     *string `json:"notes" validate:"omitempty,max=1000"`
}

type MovementResult struct {
	Transaction *model.Transaction `json:"transaction"`
	Product     *model.Product     `json:"product"`
}

type TransactionQuery struct {
	Type      string
	ProductID string
	FromDate  string
	ToDate    string
	Page      int
}

// InventoryService owns the stock ledger: every change to Product.stock made
// by a movement goes through RecordTransaction or DeleteTransaction.
type InventoryService interface {
	RecordTransaction(ctx context.Context, req *MovementRequest, actor Actor) (*MovementResult, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID, actor Actor) (*MovementResult, error)
	ListTransactions(ctx context.Context, q TransactionQuery) (*repository.Paginated[model.Transaction], error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
}

type inventoryService struct {
	db           *gorm.DB
	products     repository.ProductRepository
	transactions repository.TransactionRepository
	recorder     audit.Recorder
	fx           Effects
}

func NewInventoryService(db *gorm.DB, products repository.ProductRepository, transactions repository.TransactionRepository, recorder audit.Recorder, fx Effects) InventoryService {
	return &inventoryService{
		db:           db,
		products:     products,
		transactions: transactions,
		recorder:     recorder,
		fx:           fx,
	}
}

func (s *inventoryService) RecordTransaction(ctx context.Context, req *MovementRequest, actor Actor) (*MovementResult, error) {
	if fields := validator.FieldErrors(req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	movement := &model.Transaction{
		ProductID: uuid.MustParse(req.ProductID),
		UserID:    actor.ID,
		Type:      model.TransactionType(req.Type),
		Quantity:  *req.Quantity,
		Notes:     trimmedOrNil(req.Notes),
	}
	movement.CreatedBy = actor.ID.String()
	movement.UpdatedBy = actor.ID.String()

	var productName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.FindForUpdate(tx, movement.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "Product"}
		}
		if err != nil {
			return err
		}
		productName = product.Name

		delta := movement.Type.Delta(movement.Quantity)
		insufficient := &InsufficientStockError{
			ProductID: product.ID.String(),
			Available: product.Stock,
			Requested: movement.Quantity,
		}
		if err := checkStockCeiling(product.Stock, delta); err != nil {
			return err
		}
		if product.Stock+delta < 0 {
			return insufficient
		}

		if err := s.transactions.Create(tx, movement); err != nil {
			return err
		}
		if err := s.products.AdjustStock(tx, product.ID, delta, actor.ID.String()); err != nil {
			if errors.Is(err, repository.ErrNegativeStock) {
				return insufficient
			}
			return err
		}

		_, err = s.recorder.Record(tx, audit.Entry{
			UserID:      actor.ID,
			Action:      model.ActionCreate,
			ModelType:   model.SubjectTransaction,
			ModelID:     movement.ID,
			Description: movement.Describe(product.Name),
		})
		return err
	})
	if err != nil {
		return nil, s.fail("record transaction", err, movement)
	}

	product, err := s.products.FindByID(ctx, movement.ProductID)
	if err != nil {
		return nil, storageErr("reload product", err, "Product")
	}
	movement.Product = product

	s.fx.invalidateDashboard(ctx)
	s.fx.Metrics.MovementApplied(string(movement.Type), movement.Quantity)
	s.fx.publish(ws.Event{
		Action: ws.ActionTransactionCreated,
		Data: map[string]interface{}{
			"id":         movement.ID,
			"type":       movement.Type,
			"quantity":   movement.Quantity,
			"product_id": product.ID,
			"product":    map[string]interface{}{"name": product.Name},
			"new_stock":  product.Stock,
		},
		User:    actor.wsActor(),
		Message: fmt.Sprintf("%s recorded %s", actor.Name, movement.Describe(productName)),
	})

	return &MovementResult{Transaction: movement, Product: product}, nil
}

// DeleteTransaction reverses the movement's effect on stock and removes it.
// Reversing an "in" that the product's current stock can no longer cover is
// rejected with InsufficientStockError; stock never goes negative.
func (s *inventoryService) DeleteTransaction(ctx context.Context, id uuid.UUID, actor Actor) (*MovementResult, error) {
	var movement *model.Transaction
	var productName string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		movement, err = s.transactions.FindForReversal(tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "Transaction"}
		}
		if err != nil {
			return err
		}

		product, err := s.products.FindForUpdate(tx, movement.ProductID)
		if err != nil {
			return err
		}
		productName = product.Name

		delta := -movement.Type.Delta(movement.Quantity)
		insufficient := &InsufficientStockError{
			ProductID: product.ID.String(),
			Available: product.Stock,
			Requested: movement.Quantity,
		}
		if err := checkStockCeiling(product.Stock, delta); err != nil {
			return err
		}
		if product.Stock+delta < 0 {
			return insufficient
		}

		// A reversal that lost the race finds nothing left to delete
		err = s.transactions.Delete(tx, movement.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "Transaction"}
		}
		if err != nil {
			return err
		}
		if err := s.products.AdjustStock(tx, product.ID, delta, actor.ID.String()); err != nil {
			if errors.Is(err, repository.ErrNegativeStock) {
				return insufficient
			}
			return err
		}

		_, err = s.recorder.Record(tx, audit.Entry{
			UserID:      actor.ID,
			Action:      model.ActionDelete,
			ModelType:   model.SubjectTransaction,
			ModelID:     movement.ID,
			Description: fmt.Sprintf("Deleted transaction %s: %s", movement.Type.Label(), product.Name),
		})
		return err
	})
	if err != nil {
		return nil, s.fail("delete transaction", err, movement)
	}

	product, err := s.products.FindByID(ctx, movement.ProductID)
	if err != nil {
		return nil, storageErr("reload product", err, "Product")
	}
	movement.Product = product

	s.fx.invalidateDashboard(ctx)
	s.fx.Metrics.MovementReversed(string(movement.Type))
	s.fx.publish(ws.Event{
		Action: ws.ActionTransactionDeleted,
		Data: map[string]interface{}{
			"id":         movement.ID,
			"type":       movement.Type,
			"quantity":   movement.Quantity,
			"product_id": product.ID,
			"new_stock":  product.Stock,
		},
		User:    actor.wsActor(),
		Message: fmt.Sprintf("%s deleted transaction %s: %s", actor.Name, movement.Type.Label(), productName),
	})

	return &MovementResult{Transaction: movement, Product: product}, nil
}

func checkStockCeiling(stock, delta int) error {
	if delta > 0 && stock > MaxStock-delta {
		return NewValidationError("quantity", fmt.Sprintf("The quantity would raise the stock above %d.", MaxStock))
	}
	return nil
}

// fail classifies a rolled-back ledger error and logs the rejection
func (s *inventoryService) fail(op string, err error, movement *model.Transaction) error {
	err = storageErr(op, err, "Product")

	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if movement != nil {
		fields = append(fields,
			zap.String("product_id", movement.ProductID.String()),
			zap.String("type", string(movement.Type)),
			zap.Int("quantity", movement.Quantity),
		)
	}

	switch {
	case errors.Is(err, ErrInsufficientStock):
		s.fx.Metrics.Rejected("insufficient_stock")
		zap.L().Info("stock movement rejected", fields...)
	case errors.Is(err, ErrNotFound):
		s.fx.Metrics.Rejected("not_found")
	case errors.Is(err, ErrStorage):
		s.fx.Metrics.Rejected("storage")
		zap.L().Error("stock ledger storage failure", fields...)
	}
	return err
}

func (s *inventoryService) ListTransactions(ctx context.Context, q TransactionQuery) (*repository.Paginated[model.Transaction], error) {
	filter, err := transactionFilter(q.Type, q.ProductID, q.FromDate, q.ToDate)
	if err != nil {
		return nil, err
	}
	filter.Page = repository.Page{Number: q.Page, PerPage: repository.DefaultPerPage}

	page, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, storageErr("list transactions", err, "Transaction")
	}
	return page, nil
}

func (s *inventoryService) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	movement, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get transaction", err, "Transaction")
	}
	return movement, nil
}

func transactionFilter(txType, productID, from, to string) (repository.TransactionFilter, error) {
	var filter repository.TransactionFilter
	fields := map[string]string{}

	if txType != "" {
		t := model.TransactionType(txType)
		if !t.Valid() {
			fields["type"] = "The selected type is invalid."
		}
		filter.Type = t
	}
	id, err := parseOptionalID("product", productID)
	if err != nil {
		mergeFields(fields, err)
	}
	filter.ProductID = id

	dates, err := parseDateRange(from, to)
	if err != nil {
		mergeFields(fields, err)
	}
	filter.Dates = dates

	if len(fields) > 0 {
		return filter, &ValidationError{Fields: fields}
	}
	return filter, nil
}

func mergeFields(into map[string]string, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		for k, v := range verr.Fields {
			into[k] = v
		}
	}
}
