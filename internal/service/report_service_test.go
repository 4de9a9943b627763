package service

import (
	"strings"
	"testing"
	"time"

	"inventrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReports(f *fixture, now time.Time) ReportService {
	svc := NewReportService(f.products, f.transactions, f.logs, 10)
	svc.(*reportService).now = func() time.Time { return now }
	return svc
}

func seedReportData(t *testing.T, f *fixture) {
	t.Helper()
	p := f.product(t, "Widget", 40)
	f.movementAt(t, p, model.TxIn, 10, time.Date(2026, time.February, 3, 10, 0, 0, 0, time.Local))
	f.movementAt(t, p, model.TxOut, 4, time.Date(2026, time.February, 28, 23, 30, 0, 0, time.Local))
	f.movementAt(t, p, model.TxOut, 6, time.Date(2026, time.March, 1, 0, 30, 0, 0, time.Local))
}

func TestReportIndexFilters(t *testing.T) {
	f := newFixture(t)
	seedReportData(t, f)
	svc := newReports(f, time.Now())

	idx, err := svc.Index(f.ctx, ReportQuery{FromDate: "2026-02-01", ToDate: "2026-02-28"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), idx.Summary.TotalIn)
	assert.Equal(t, int64(4), idx.Summary.TotalOut)
	assert.Equal(t, int64(2), idx.Summary.TransactionCount)
	assert.Equal(t, int64(2), idx.Transactions.Total)
	assert.Equal(t, 15, idx.Transactions.PerPage)
	assert.Equal(t, "2026-02-01", idx.Filters["from_date"])

	idx, err = svc.Index(f.ctx, ReportQuery{Type: "out"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), idx.Transactions.Total)
	assert.Equal(t, int64(2), idx.Summary.TransactionCount)
	// totals ignore the type filter
	assert.Equal(t, int64(10), idx.Summary.TotalIn)
	assert.Equal(t, int64(10), idx.Summary.TotalOut)
}

func TestReportIndexRejectsBadDates(t *testing.T) {
	f := newFixture(t)
	svc := newReports(f, time.Now())

	_, err := svc.Index(f.ctx, ReportQuery{FromDate: "03/01/2026"})
	assert.Contains(t, fieldsOf(t, err), "from_date")

	_, err = svc.Index(f.ctx, ReportQuery{FromDate: "2026-03-02", ToDate: "2026-03-01"})
	assert.Contains(t, fieldsOf(t, err), "to_date")
}

func TestReportIndexRecentActivity(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Widget", 40)
	_, err := f.inventory.RecordTransaction(f.ctx, movement(p.ID.String(), "out", 1), f.actor)
	require.NoError(t, err)

	idx, err := newReports(f, time.Now()).Index(f.ctx, ReportQuery{})
	require.NoError(t, err)
	require.Len(t, idx.RecentActivities, 1)
	assert.Equal(t, "Stock Out: Widget (1 unit)", idx.RecentActivities[0].Description)
	require.NotNil(t, idx.RecentActivities[0].User)
}

func TestReportExportCSV(t *testing.T) {
	f := newFixture(t)
	seedReportData(t, f)
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.Local)

	file, err := newReports(f, now).Export(f.ctx, ReportQuery{FromDate: "2026-03-01"}, "", f.actor)
	require.NoError(t, err)
	assert.Equal(t, "inventory-report-2026-03-02.csv", file.Name)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	body := string(file.Body)
	assert.Contains(t, body, "Widget")
	assert.Contains(t, body, "60000.00")
	assert.Equal(t, 1, strings.Count(body, ",OUT,"))
}

func TestReportExportXLSX(t *testing.T) {
	f := newFixture(t)
	seedReportData(t, f)

	file, err := newReports(f, time.Now()).Export(f.ctx, ReportQuery{}, "XLSX", f.actor)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
	// xlsx is a zip archive
	assert.Equal(t, "PK", string(file.Body[:2]))
}

func TestReportExportRejectsFormat(t *testing.T) {
	f := newFixture(t)

	_, err := newReports(f, time.Now()).Export(f.ctx, ReportQuery{}, "pdf", f.actor)
	assert.Equal(t, "The selected format is invalid.", fieldsOf(t, err)["format"])
}
