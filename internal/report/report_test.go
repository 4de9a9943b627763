package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"inventrack/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleData() *Data {
	tools := &model.Category{Name: "Tools"}
	hammer := &model.Product{Name: "Hammer", Category: tools, Stock: 3, Price: decimal.RequireFromString("25000")}
	note := "restock"
	return &Data{
		GeneratedAt: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
		GeneratedBy: "Admin",
		FromDate:    "2024-03-01",
		Threshold:   10,
		Summary:     Summary{TotalIn: 20, TotalOut: 5, TransactionCount: 2, StockValue: decimal.RequireFromString("75000")},
		Transactions: []model.Transaction{
			{Type: model.TxIn, Quantity: 20, Product: hammer, User: &model.User{FullName: "Admin"}, Notes: &note},
			{Type: model.TxOut, Quantity: 5, Product: hammer, User: &model.User{FullName: "Admin"}},
		},
		Products: []model.Product{*hammer, {Name: "Saw", Stock: 0, Price: decimal.Zero}},
	}
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("")
	assert.True(t, ok)
	assert.Equal(t, FormatCSV, f)

	f, ok = ParseFormat("XLSX")
	assert.True(t, ok)
	assert.Equal(t, FormatXLSX, f)

	_, ok = ParseFormat("pdf")
	assert.False(t, ok)

	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "inventory-report-2024-03-09.xlsx", FormatXLSX.FileName(day))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleData()))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	var sawHeader, sawHammerIn, sawSawOut bool
	for _, rec := range records {
		switch {
		case len(rec) == 8 && rec[0] == "No":
			sawHeader = true
		case len(rec) == 8 && rec[2] == "Hammer" && rec[4] == "IN":
			sawHammerIn = true
			assert.Equal(t, "20", rec[5])
			assert.Equal(t, "Tools", rec[3])
			assert.Equal(t, "restock", rec[7])
		case len(rec) == 6 && rec[1] == "Saw":
			sawSawOut = true
			assert.Equal(t, "Out of stock", rec[3])
			assert.Equal(t, "-", rec[2])
		}
	}
	assert.True(t, sawHeader)
	assert.True(t, sawHammerIn)
	assert.True(t, sawSawOut)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleData()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetSummary, sheetTransactions, sheetProducts}, f.GetSheetList())

	total, err := f.GetCellValue(sheetSummary, "B8")
	require.NoError(t, err)
	assert.Equal(t, "20", total)

	rows, err := f.GetRows(sheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "OUT", rows[2][4])

	status, err := f.GetCellValue(sheetProducts, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Low", status)
}
