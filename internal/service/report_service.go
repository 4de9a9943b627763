package service

import (
	"bytes"
	"context"
	"time"

	"inventrack/internal/model"
	"inventrack/internal/report"
	"inventrack/internal/repository"
)

const (
	reportPerPage        = 15
	reportRecentActivity = 10
)

type ReportQuery struct {
	FromDate string
	ToDate   string
	Type     string
	Page     int
}

type ReportIndex struct {
	Transactions     *repository.Paginated[model.Transaction] `json:"transactions"`
	Summary          report.Summary                           `json:"summary"`
	RecentActivities []model.ActivityLog                      `json:"recent_activities"`
	Filters          map[string]string                        `json:"filters"`
}

// ExportFile is a rendered report ready to be sent as a download
type ExportFile struct {
	Name        string
	ContentType string
	Body        []byte
}

// ReportService only reads
type ReportService interface {
	Index(ctx context.Context, q ReportQuery) (*ReportIndex, error)
	Export(ctx context.Context, q ReportQuery, format string, actor Actor) (*ExportFile, error)
}

type reportService struct {
	products     repository.ProductRepository
	transactions repository.TransactionRepository
	logs         repository.ActivityLogRepository
	threshold    int
	now          func() time.Time
}

func NewReportService(products repository.ProductRepository, transactions repository.TransactionRepository, logs repository.ActivityLogRepository, lowStockThreshold int) ReportService {
	return &reportService{
		products:     products,
		transactions: transactions,
		logs:         logs,
		threshold:    lowStockThreshold,
		now:          time.Now,
	}
}

// summary totals use the date filters only; the count honours type too
func (s *reportService) summary(ctx context.Context, filter repository.TransactionFilter) (report.Summary, error) {
	var sum report.Summary
	var err error
	if sum.TotalIn, sum.TotalOut, err = s.transactions.SumByType(ctx, filter.Dates); err != nil {
		return sum, err
	}
	if sum.TransactionCount, err = s.transactions.Count(ctx, filter); err != nil {
		return sum, err
	}
	return sum, nil
}

func (s *reportService) Index(ctx context.Context, q ReportQuery) (*ReportIndex, error) {
	filter, err := transactionFilter(q.Type, "", q.FromDate, q.ToDate)
	if err != nil {
		return nil, err
	}
	filter.Page = repository.Page{Number: q.Page, PerPage: reportPerPage}

	page, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, storageErr("report transactions", err, "Transaction")
	}
	sum, err := s.summary(ctx, filter)
	if err != nil {
		return nil, storageErr("report summary", err, "Transaction")
	}
	activities, err := s.logs.Latest(ctx, reportRecentActivity)
	if err != nil {
		return nil, storageErr("recent activity", err, "ActivityLog")
	}

	return &ReportIndex{
		Transactions:     page,
		Summary:          sum,
		RecentActivities: activities,
		Filters: map[string]string{
			"from_date": q.FromDate,
			"to_date":   q.ToDate,
			"type":      q.Type,
		},
	}, nil
}

func (s *reportService) Export(ctx context.Context, q ReportQuery, format string, actor Actor) (*ExportFile, error) {
	f, ok := report.ParseFormat(format)
	if !ok {
		return nil, NewValidationError("format", "The selected format is invalid.")
	}
	filter, err := transactionFilter(q.Type, "", q.FromDate, q.ToDate)
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactions.ListAll(ctx, filter)
	if err != nil {
		return nil, storageErr("report transactions", err, "Transaction")
	}
	sum, err := s.summary(ctx, filter)
	if err != nil {
		return nil, storageErr("report summary", err, "Transaction")
	}
	products, err := s.products.AllWithCategory(ctx)
	if err != nil {
		return nil, storageErr("report products", err, "Product")
	}
	sum.StockValue = stockValue(products)

	now := s.now()
	data := &report.Data{
		GeneratedAt:  now,
		GeneratedBy:  actor.Name,
		FromDate:     q.FromDate,
		ToDate:       q.ToDate,
		Type:         q.Type,
		Summary:      sum,
		Transactions: transactions,
		Products:     products,
		Threshold:    s.threshold,
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, f, data); err != nil {
		return nil, &StorageError{Op: "render report", Err: err}
	}
	return &ExportFile{
		Name:        f.FileName(now),
		ContentType: f.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}
