package service

import (
	"context"
	"sync"
	"testing"

	"inventrack/internal/audit"
	"inventrack/internal/cache"
	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/internal/storage"
	"inventrack/internal/testutil"
	"inventrack/internal/ws"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingHub struct {
	mu     sync.Mutex
	events []ws.Event
}

func (h *recordingHub) Publish(e ws.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHub) actions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.Action
	}
	return out
}

func (h *recordingHub) last() ws.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events[len(h.events)-1]
}

type fixture struct {
	db       *gorm.DB
	ctx      context.Context
	user     *model.User
	actor    Actor
	category *model.Category
	hub      *recordingHub
	cache    *cache.MemoryCache
	images   *storage.ImageStore

	categories   repository.CategoryRepository
	products     repository.ProductRepository
	transactions repository.TransactionRepository
	logs         repository.ActivityLogRepository
	recorder     audit.Recorder

	inventory InventoryService
	catalog   CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:           db,
		ctx:          context.Background(),
		hub:          &recordingHub{},
		cache:        cache.NewMemoryCache(),
		images:       storage.NewImageStore(afero.NewMemMapFs(), "/images", 0),
		categories:   repository.NewCategoryRepo(db),
		products:     repository.NewProductRepo(db),
		transactions: repository.NewTransactionRepo(db),
		logs:         repository.NewActivityLogRepo(db),
	}
	f.recorder = audit.NewRecorder(f.logs)
	f.user = testutil.SeedUser(t, db, "operator@example.com")
	f.actor = Actor{ID: f.user.ID, Name: f.user.FullName, Email: f.user.Email}
	f.category = testutil.SeedCategory(t, db, "General")

	fx := Effects{Hub: f.hub, Cache: f.cache}
	f.inventory = NewInventoryService(db, f.products, f.transactions, f.recorder, fx)
	f.catalog = NewCatalogService(db, f.categories, f.products, f.transactions, f.recorder, f.images, 10, fx)
	return f
}

func (f *fixture) product(t *testing.T, name string, stock int) *model.Product {
	t.Helper()
	return testutil.SeedProduct(t, f.db, f.category.ID, name, stock)
}

func (f *fixture) stock(t *testing.T, p *model.Product) int {
	t.Helper()
	got, err := f.products.FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	return got.Stock
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	return testutil.Count(t, f.db, m)
}

func movement(productID string, txType string, quantity int) *MovementRequest {
	return &MovementRequest{ProductID: productID, Type: txType, Quantity: &quantity}
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }
