// Package report renders the inventory report as CSV or XLSX. Writers only
// format data they are given and never touch the database.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"inventrack/internal/model"

	"github.com/shopspring/decimal"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatXLSX:
		return FormatXLSX, true
	}
	return "", false
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName is inventory-report-YYYY-MM-DD with the format's extension
func (f Format) FileName(at time.Time) string {
	return fmt.Sprintf("inventory-report-%s.%s", at.Format("2006-01-02"), f)
}

type Summary struct {
	TotalIn          int64           `json:"total_in"`
	TotalOut         int64           `json:"total_out"`
	TransactionCount int64           `json:"transaction_count"`
	StockValue       decimal.Decimal `json:"stock_value"`
}

// Data is everything a rendered report shows
type Data struct {
	GeneratedAt  time.Time
	GeneratedBy  string
	FromDate     string
	ToDate       string
	Type         string
	Summary      Summary
	Transactions []model.Transaction
	Products     []model.Product
	Threshold    int
}

func Write(w io.Writer, f Format, d *Data) error {
	if f == FormatXLSX {
		return WriteXLSX(w, d)
	}
	return WriteCSV(w, d)
}

func typeLabel(t model.TransactionType) string {
	if t == model.TxIn {
		return "IN"
	}
	return "OUT"
}

func stockStatus(stock, threshold int) string {
	switch {
	case stock == 0:
		return "Out of stock"
	case stock <= threshold:
		return "Low"
	default:
		return "Available"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func productName(t *model.Transaction) string {
	if t.Product == nil {
		return ""
	}
	return t.Product.Name
}

func categoryName(c *model.Category) string {
	if c == nil {
		return "-"
	}
	return c.Name
}

func transactionCategory(t *model.Transaction) string {
	if t.Product == nil {
		return "-"
	}
	return categoryName(t.Product.Category)
}

func operatorName(t *model.Transaction) string {
	if t.User == nil {
		return ""
	}
	return t.User.FullName
}

func filterLabel(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
