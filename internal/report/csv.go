package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes the summary block, then the transactions table, then the
// product stock table, separated by blank records.
func WriteCSV(w io.Writer, d *Data) error {
	cw := csv.NewWriter(w)

	records := [][]string{
		{"InvenTrack Inventory Report"},
		{"Generated at", d.GeneratedAt.Format("2006-01-02 15:04")},
		{"Generated by", orDash(d.GeneratedBy)},
		{"From date", filterLabel(d.FromDate, "All time")},
		{"To date", filterLabel(d.ToDate, "Now")},
		{"Type", filterLabel(d.Type, "All")},
		{},
		{"Total in", strconv.FormatInt(d.Summary.TotalIn, 10)},
		{"Total out", strconv.FormatInt(d.Summary.TotalOut, 10)},
		{"Transactions", strconv.FormatInt(d.Summary.TransactionCount, 10)},
		{"Stock value", d.Summary.StockValue.StringFixed(2)},
		{},
		{"No", "Date", "Product", "Category", "Type", "Quantity", "Operator", "Notes"},
	}
	for i := range d.Transactions {
		t := &d.Transactions[i]
		notes := ""
		if t.Notes != nil {
			notes = *t.Notes
		}
		records = append(records, []string{
			strconv.Itoa(i + 1),
			t.CreatedAt.Format("2006-01-02 15:04"),
			productName(t),
			transactionCategory(t),
			typeLabel(t.Type),
			strconv.Itoa(t.Quantity),
			operatorName(t),
			notes,
		})
	}

	records = append(records, []string{}, []string{"No", "Product", "Category", "Stock status", "Stock", "Price"})
	for i, p := range d.Products {
		records = append(records, []string{
			strconv.Itoa(i + 1),
			p.Name,
			categoryName(p.Category),
			stockStatus(p.Stock, d.Threshold),
			strconv.Itoa(p.Stock),
			p.Price.StringFixed(2),
		})
	}

	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
