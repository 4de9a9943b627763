package repository

import (
	"context"
	"testing"
	"time"

	"inventrack/internal/model"
	"inventrack/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAdjustStockGuard(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCategory(t, db, "Tools")
	p := testutil.SeedProduct(t, db, cat.ID, "Hammer", 5)
	repo := NewProductRepo(db)

	require.NoError(t, repo.AdjustStock(db, p.ID, -5, "tester"))
	err := repo.AdjustStock(db, p.ID, -1, "tester")
	assert.ErrorIs(t, err, ErrNegativeStock)

	got, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, "tester", got.UpdatedBy)
}

func TestProductListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tools := testutil.SeedCategory(t, db, "Tools")
	food := testutil.SeedCategory(t, db, "Food")
	testutil.SeedProduct(t, db, tools.ID, "Claw Hammer", 0)
	testutil.SeedProduct(t, db, tools.ID, "Screwdriver", 4)
	testutil.SeedProduct(t, db, tools.ID, "Drill", 10)
	testutil.SeedProduct(t, db, food.ID, "Rice", 50)
	repo := NewProductRepo(db)

	tests := []struct {
		name   string
		filter ProductFilter
		want   int64
	}{
		{"all", ProductFilter{}, 4},
		{"search is case insensitive", ProductFilter{Search: "hammer"}, 1},
		{"category", ProductFilter{CategoryID: &food.ID}, 1},
		{"out", ProductFilter{Stock: model.StockOut, Threshold: 10}, 1},
		{"low excludes zero", ProductFilter{Stock: model.StockLow, Threshold: 10}, 2},
		{"available", ProductFilter{Stock: model.StockAvailable, Threshold: 10}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Total)
			assert.Len(t, page.Data, int(tt.want))
		})
	}
}

func TestPagination(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCategory(t, db, "Bulk")
	for i := 0; i < 12; i++ {
		testutil.SeedProduct(t, db, cat.ID, "Item", i)
	}
	repo := NewProductRepo(db)

	page, err := repo.List(context.Background(), ProductFilter{Page: Page{Number: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 2, page.LastPage)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Data, 2)
	require.NotNil(t, page.Data[0].Category)
	assert.Equal(t, "Bulk", page.Data[0].Category.Name)
}

func TestCategoryListProductCounts(t *testing.T) {
	db := testutil.NewDB(t)
	tools := testutil.SeedCategory(t, db, "Tools")
	testutil.SeedCategory(t, db, "Empty")
	testutil.SeedProduct(t, db, tools.ID, "Saw", 1)
	testutil.SeedProduct(t, db, tools.ID, "Axe", 1)
	repo := NewCategoryRepo(db)

	page, err := repo.List(context.Background(), CategoryFilter{})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)

	counts := map[string]int64{}
	for _, c := range page.Data {
		counts[c.Name] = c.ProductsCount
	}
	assert.Equal(t, int64(2), counts["Tools"])
	assert.Equal(t, int64(0), counts["Empty"])

	taken, err := repo.NameTaken(context.Background(), "tools", nil)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.NameTaken(context.Background(), "Tools", &tools.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestTransactionAggregates(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, "agg@example.com")
	cat := testutil.SeedCategory(t, db, "Tools")
	p := testutil.SeedProduct(t, db, cat.ID, "Saw", 100)
	repo := NewTransactionRepo(db)

	old := time.Now().AddDate(0, 0, -40)
	rows := []model.Transaction{
		{ProductID: p.ID, UserID: user.ID, Type: model.TxIn, Quantity: 10},
		{ProductID: p.ID, UserID: user.ID, Type: model.TxOut, Quantity: 4},
		{ProductID: p.ID, UserID: user.ID, Type: model.TxIn, Quantity: 7, BaseModel: model.BaseModel{CreatedAt: old}},
	}
	for i := range rows {
		require.NoError(t, repo.Create(db, &rows[i]))
	}

	totalIn, totalOut, err := repo.SumByType(ctx, DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(17), totalIn)
	assert.Equal(t, int64(4), totalOut)

	from := time.Now().AddDate(0, 0, -7)
	totalIn, _, err = repo.SumByType(ctx, DateRange{From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(10), totalIn)

	n, err := repo.Count(ctx, TransactionFilter{Type: model.TxIn})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	movements, err := repo.MovementsSince(ctx, from)
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	recent, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.NotNil(t, recent[0].Product)
	assert.NotNil(t, recent[0].User)
}

func TestTransactionDeleteReportsMissingRow(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "delete@example.com")
	cat := testutil.SeedCategory(t, db, "Tools")
	p := testutil.SeedProduct(t, db, cat.ID, "Chisel", 3)
	repo := NewTransactionRepo(db)

	row := &model.Transaction{ProductID: p.ID, UserID: user.ID, Type: model.TxIn, Quantity: 3}
	require.NoError(t, repo.Create(db, row))

	locked, err := repo.FindForReversal(db, row.ID)
	require.NoError(t, err)
	assert.Equal(t, row.ID, locked.ID)

	require.NoError(t, repo.Delete(db, row.ID))
	assert.ErrorIs(t, repo.Delete(db, row.ID), gorm.ErrRecordNotFound)

	_, err = repo.FindForReversal(db, row.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSeedDefaults(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	require.NoError(t, NewPrivilegeRepo(db).SeedDefaults(ctx))
	require.NoError(t, NewPrivilegeRepo(db).SeedDefaults(ctx))
	roles := NewRoleRepo(db)
	require.NoError(t, roles.SeedDefaults(ctx))

	all, err := NewPrivilegeRepo(db).FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(model.DefaultPrivileges))

	admin, err := roles.FindByCode(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admin.Privileges, len(model.DefaultRolePrivileges(model.RoleAdmin)))
}
