package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"inventrack/internal/cache"
	"inventrack/internal/model"
	"inventrack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	dashboardListSize = 5
	summaryMonths     = 6
	maxMovementDays   = 90
)

type MonthlyMovement struct {
	Month    string `json:"month"` // YYYY-MM
	TotalIn  int64  `json:"total_in"`
	TotalOut int64  `json:"total_out"`
}

// DailyMovement is one point of the stock movement chart
type DailyMovement struct {
	Date     string `json:"date"`
	Inbound  int64  `json:"inbound"`
	Outbound int64  `json:"outbound"`
}

type DashboardSummary struct {
	TotalProducts      int64               `json:"total_products"`
	TotalCategories    int64               `json:"total_categories"`
	LowStockProducts   int64               `json:"low_stock_products"`
	TotalTransactions  int64               `json:"total_transactions"`
	StockValue         decimal.Decimal     `json:"stock_value"`
	RecentTransactions []model.Transaction `json:"recent_transactions"`
	LowStockItems      []model.Product     `json:"low_stock_items"`
	MonthlySummary     []MonthlyMovement   `json:"monthly_summary"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

type DashboardService interface {
	Summary(ctx context.Context) (*DashboardSummary, error)
	StockMovement(ctx context.Context, days int) ([]DailyMovement, error)
}

type dashboardService struct {
	categories   repository.CategoryRepository
	products     repository.ProductRepository
	transactions repository.TransactionRepository
	cache        cache.Cache
	ttl          time.Duration
	threshold    int
	now          func() time.Time
}

func NewDashboardService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	transactions repository.TransactionRepository,
	c cache.Cache,
	ttl time.Duration,
	lowStockThreshold int,
) DashboardService {
	return &dashboardService{
		categories:   categories,
		products:     products,
		transactions: transactions,
		cache:        c,
		ttl:          ttl,
		threshold:    lowStockThreshold,
		now:          time.Now,
	}
}

func (s *dashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	generation, cacheable := s.generation(ctx)
	if cacheable {
		if cached := s.cached(ctx, generation); cached != nil {
			return cached, nil
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, storageErr("dashboard summary", err, "Dashboard")
	}

	if cacheable {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, dashboardSummaryKey(generation), raw, s.ttl); err != nil {
				zap.L().Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return summary, nil
}

// generation returns the cache generation to read and write under, starting
// one when none exists yet
func (s *dashboardService) generation(ctx context.Context) (string, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return "", false
	}
	raw, err := s.cache.Get(ctx, DashboardGenerationKey)
	if err == nil {
		return string(raw), true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		zap.L().Warn("dashboard cache read failed", zap.Error(err))
		return "", false
	}
	generation := uuid.NewString()
	if err := s.cache.Set(ctx, DashboardGenerationKey, []byte(generation), 0); err != nil {
		zap.L().Warn("dashboard cache write failed", zap.Error(err))
		return "", false
	}
	return generation, true
}

func (s *dashboardService) cached(ctx context.Context, generation string) *DashboardSummary {
	raw, err := s.cache.Get(ctx, dashboardSummaryKey(generation))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			zap.L().Warn("dashboard cache read failed", zap.Error(err))
		}
		return nil
	}
	var summary DashboardSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *dashboardService) build(ctx context.Context) (*DashboardSummary, error) {
	var (
		summary = &DashboardSummary{GeneratedAt: s.now()}
		err     error
	)

	if summary.TotalProducts, err = s.products.Count(ctx); err != nil {
		return nil, err
	}
	if summary.TotalCategories, err = s.categories.Count(ctx); err != nil {
		return nil, err
	}
	if summary.LowStockProducts, err = s.products.CountLowStock(ctx, s.threshold); err != nil {
		return nil, err
	}
	if summary.TotalTransactions, err = s.transactions.Count(ctx, repository.TransactionFilter{}); err != nil {
		return nil, err
	}
	if summary.RecentTransactions, err = s.transactions.Recent(ctx, dashboardListSize); err != nil {
		return nil, err
	}
	if summary.LowStockItems, err = s.products.LowestStock(ctx, s.threshold, dashboardListSize); err != nil {
		return nil, err
	}

	products, err := s.products.AllWithCategory(ctx)
	if err != nil {
		return nil, err
	}
	summary.StockValue = stockValue(products)

	if summary.MonthlySummary, err = s.monthly(ctx); err != nil {
		return nil, err
	}
	return summary, nil
}

// monthly buckets the last six calendar months, current one included,
// oldest first. Months without movements are reported as zero.
func (s *dashboardService) monthly(ctx context.Context) ([]MonthlyMovement, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(summaryMonths - 1), 0)

	movements, err := s.transactions.MovementsSince(ctx, start)
	if err != nil {
		return nil, err
	}

	months := make([]MonthlyMovement, summaryMonths)
	index := make(map[string]int, summaryMonths)
	for i := range months {
		key := start.AddDate(0, i, 0).Format("2006-01")
		months[i].Month = key
		index[key] = i
	}
	for _, m := range movements {
		i, ok := index[m.CreatedAt.In(now.Location()).Format("2006-01")]
		if !ok {
			continue
		}
		if m.Type == model.TxIn {
			months[i].TotalIn += int64(m.Quantity)
		} else {
			months[i].TotalOut += int64(m.Quantity)
		}
	}
	return months, nil
}

// StockMovement returns one point per day for the last days days, today included
func (s *dashboardService) StockMovement(ctx context.Context, days int) ([]DailyMovement, error) {
	if days < 1 || days > maxMovementDays {
		return nil, NewValidationError("days", "The days field must be between 1 and 90.")
	}

	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))

	movements, err := s.transactions.MovementsSince(ctx, start)
	if err != nil {
		return nil, storageErr("stock movement", err, "Transaction")
	}

	points := make([]DailyMovement, days)
	index := make(map[string]int, days)
	for i := range points {
		key := start.AddDate(0, 0, i).Format(dateLayout)
		points[i].Date = key
		index[key] = i
	}
	for _, m := range movements {
		i, ok := index[m.CreatedAt.In(now.Location()).Format(dateLayout)]
		if !ok {
			continue
		}
		if m.Type == model.TxIn {
			points[i].Inbound += int64(m.Quantity)
		} else {
			points[i].Outbound += int64(m.Quantity)
		}
	}
	return points, nil
}
