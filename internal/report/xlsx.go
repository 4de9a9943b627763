package report

import (
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary      = "Summary"
	sheetTransactions = "Transactions"
	sheetProducts     = "Products"
)

// WriteXLSX renders a workbook with Summary, Transactions and Products sheets
func WriteXLSX(w io.Writer, d *Data) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetTransactions); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetProducts); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	summaryRows := [][]interface{}{
		{"InvenTrack Inventory Report"},
		{"Generated at", d.GeneratedAt.Format("2006-01-02 15:04")},
		{"Generated by", orDash(d.GeneratedBy)},
		{"From date", filterLabel(d.FromDate, "All time")},
		{"To date", filterLabel(d.ToDate, "Now")},
		{"Type", filterLabel(d.Type, "All")},
		{},
		{"Total in", d.Summary.TotalIn},
		{"Total out", d.Summary.TotalOut},
		{"Transactions", d.Summary.TransactionCount},
		{"Stock value", d.Summary.StockValue.InexactFloat64()},
	}
	if err := writeRows(f, sheetSummary, summaryRows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "A1", header); err != nil {
		return err
	}

	txRows := [][]interface{}{{"No", "Date", "Product", "Category", "Type", "Quantity", "Operator", "Notes"}}
	for i := range d.Transactions {
		t := &d.Transactions[i]
		notes := ""
		if t.Notes != nil {
			notes = *t.Notes
		}
		txRows = append(txRows, []interface{}{
			i + 1,
			t.CreatedAt.Format("2006-01-02 15:04"),
			productName(t),
			transactionCategory(t),
			typeLabel(t.Type),
			t.Quantity,
			operatorName(t),
			notes,
		})
	}
	if err := writeRows(f, sheetTransactions, txRows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetTransactions, "A1", "H1", header); err != nil {
		return err
	}

	productRows := [][]interface{}{{"No", "Product", "Category", "Stock status", "Stock", "Price"}}
	for i, p := range d.Products {
		productRows = append(productRows, []interface{}{
			i + 1,
			p.Name,
			categoryName(p.Category),
			stockStatus(p.Stock, d.Threshold),
			p.Stock,
			p.Price.InexactFloat64(),
		})
	}
	if err := writeRows(f, sheetProducts, productRows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetProducts, "A1", "F1", header); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
