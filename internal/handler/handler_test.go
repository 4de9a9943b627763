package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inventrack/internal/audit"
	"inventrack/internal/cache"
	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/internal/service"
	"inventrack/internal/storage"
	"inventrack/internal/testutil"
	"inventrack/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testAuth struct {
	claims jwt.Claims
}

func (a *testAuth) Authenticate(context.Context, string) (*jwt.Claims, error) {
	claims := a.claims
	return &claims, nil
}

type env struct {
	app      *fiber.App
	db       *gorm.DB
	user     *model.User
	category *model.Category
	auth     *testAuth
}

func allPrivileges() []string {
	codes := make([]string, len(model.DefaultPrivileges))
	for i, p := range model.DefaultPrivileges {
		codes[i] = p.Code
	}
	return codes
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "operator@example.com")

	categoryRepo := repository.NewCategoryRepo(db)
	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	logRepo := repository.NewActivityLogRepo(db)
	userRepo := repository.NewUserRepo(db)

	recorder := audit.NewRecorder(logRepo)
	fx := service.Effects{Cache: cache.NewMemoryCache()}
	images := storage.NewImageStore(afero.NewMemMapFs(), "/images", 0)
	userService := service.NewUserService(userRepo, repository.NewPrivilegeRepo(db), repository.NewRoleRepo(db))
	catalog := service.NewCatalogService(db, categoryRepo, productRepo, txRepo, recorder, images, 10, fx)

	handlers := Handlers{
		Auth:      NewAuthHandler(service.NewAuthService(userRepo, jwt.NewManager("test-secret", 1))),
		User:      NewUserHandler(userService),
		Role:      NewRoleHandler(userService),
		Category:  NewCategoryHandler(catalog),
		Product:   NewProductHandler(catalog),
		Inventory: NewInventoryHandler(service.NewInventoryService(db, productRepo, txRepo, recorder, fx)),
		Dashboard: NewDashboardHandler(service.NewDashboardService(categoryRepo, productRepo, txRepo, fx.Cache, 0, 10)),
		Report:    NewReportHandler(service.NewReportService(productRepo, txRepo, logRepo, 10), logRepo),
	}

	e := &env{
		app:      fiber.New(),
		db:       db,
		user:     user,
		category: testutil.SeedCategory(t, db, "General"),
		auth: &testAuth{claims: jwt.Claims{
			UserID:     user.ID,
			Email:      user.Email,
			Name:       user.FullName,
			Privileges: allPrivileges(),
		}},
	}
	Register(e.app.Group("/api/v1"), handlers, e.auth, nil)
	return e
}

func (e *env) send(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	req.Header.Set(fiber.HeaderAuthorization, "Bearer test")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	var body map[string]interface{}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func (e *env) do(t *testing.T, method, path string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		reader = strings.NewReader(p)
	default:
		b, err := json.Marshal(p)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.send(t, req)
}

func errorsOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	fields, ok := body["errors"].(map[string]interface{})
	require.True(t, ok, "no errors object in %v", body)
	return fields
}

func TestCreateTransaction(t *testing.T) {
	e := newEnv(t)
	p := testutil.SeedProduct(t, e.db, e.category.ID, "Widget", 100)

	resp, body := e.do(t, fiber.MethodPost, "/api/v1/transactions", fiber.Map{
		"product_id": p.ID, "type": "out", "quantity": 30, "notes": "order #12",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(70), data["product"].(map[string]interface{})["stock"])
	assert.Equal(t, "Transaction recorded successfully", body["message"])
}

func TestCreateTransactionInsufficientStock(t *testing.T) {
	e := newEnv(t)
	p := testutil.SeedProduct(t, e.db, e.category.ID, "Widget", 10)

	resp, body := e.do(t, fiber.MethodPost, "/api/v1/transactions", fiber.Map{
		"product_id": p.ID, "type": "out", "quantity": 15,
	})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Insufficient stock. Available stock: 10", errorsOf(t, body)["quantity"])
	assert.Equal(t, float64(10), body["available"])
	assert.Equal(t, int64(0), testutil.Count(t, e.db, &model.Transaction{}))
}

func TestListTransactionsByProduct(t *testing.T) {
	e := newEnv(t)
	a := testutil.SeedProduct(t, e.db, e.category.ID, "Alpha", 50)
	b := testutil.SeedProduct(t, e.db, e.category.ID, "Beta", 50)
	for _, p := range []*model.Product{a, a, b} {
		resp, _ := e.do(t, fiber.MethodPost, "/api/v1/transactions", fiber.Map{"product_id": p.ID, "type": "in", "quantity": 1})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, body := e.do(t, fiber.MethodGet, "/api/v1/transactions?product="+a.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/transactions", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["total"])
}

func TestCreateTransactionBadBodies(t *testing.T) {
	e := newEnv(t)
	p := testutil.SeedProduct(t, e.db, e.category.ID, "Widget", 10)

	resp, body := e.do(t, fiber.MethodPost, "/api/v1/transactions", fmt.Sprintf(`{"product_id":"%s","type":"in","quantity":"ten"}`, p.ID))
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "The quantity field must be an integer.", errorsOf(t, body)["quantity"])

	resp, body = e.do(t, fiber.MethodPost, "/api/v1/transactions", `{"product_id":`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid JSON", body["error"])

	resp, body = e.do(t, fiber.MethodPost, "/api/v1/transactions", fiber.Map{"product_id": p.ID, "type": "in", "quantity": 0})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "The quantity field must be at least 1.", errorsOf(t, body)["quantity"])
	assert.Equal(t, "The quantity field must be at least 1.", body["message"])
}

func TestDeleteTransactionReversal(t *testing.T) {
	e := newEnv(t)
	p := testutil.SeedProduct(t, e.db, e.category.ID, "Widget", 0)

	_, body := e.do(t, fiber.MethodPost, "/api/v1/transactions", fiber.Map{"product_id": p.ID, "type": "in", "quantity": 20})
	txID := body["data"].(map[string]interface{})["transaction"].(map[string]interface{})["id"].(string)

	require.NoError(t, e.db.Model(&model.Product{}).Where("id = ?", p.ID).Update("stock", 5).Error)
	resp, body := e.do(t, fiber.MethodDelete, "/api/v1/transactions/"+txID, nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, float64(5), body["available"])

	require.NoError(t, e.db.Model(&model.Product{}).Where("id = ?", p.ID).Update("stock", 25).Error)
	resp, body = e.do(t, fiber.MethodDelete, "/api/v1/transactions/"+txID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), body["data"].(map[string]interface{})["product"].(map[string]interface{})["stock"])

	resp, body = e.do(t, fiber.MethodDelete, "/api/v1/transactions/"+txID, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Transaction not found", body["error"])
}

func TestPrivilegeGate(t *testing.T) {
	e := newEnv(t)
	e.auth.claims.Privileges = []string{model.PrivTransactionView}

	resp, _ := e.do(t, fiber.MethodGet, "/api/v1/transactions", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := e.do(t, fiber.MethodDelete, "/api/v1/transactions/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden: requires 'transaction:delete' privilege", body["error"])
}

func TestProductValidationSummary(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/v1/products", fiber.Map{})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	fields := errorsOf(t, body)
	assert.Len(t, fields, 4)
	assert.Equal(t, "The category id field is required. (and 3 more errors)", body["message"])
}

func TestGetProduct(t *testing.T) {
	e := newEnv(t)
	p := testutil.SeedProduct(t, e.db, e.category.ID, "Widget", 3)

	resp, body := e.do(t, fiber.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Widget", body["data"].(map[string]interface{})["name"])

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/products/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid product ID", body["error"])

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/products/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", body["error"])
}

func TestListProductsPagination(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 12; i++ {
		testutil.SeedProduct(t, e.db, e.category.ID, fmt.Sprintf("Item %02d", i), i)
	}

	resp, body := e.do(t, fiber.MethodGet, "/api/v1/products?page=2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(12), body["total"])
	assert.Equal(t, float64(2), body["current_page"])
	assert.Equal(t, float64(2), body["last_page"])
	assert.Len(t, body["data"], 2)

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/products?stock=weird", nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, errorsOf(t, body), "stock")
}

func TestUploadProductImage(t *testing.T) {
	e := newEnv(t)
	p := testutil.SeedProduct(t, e.db, e.category.ID, "Widget", 3)
	png, err := base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "widget.png")
	require.NoError(t, err)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/products/"+p.ID.String()+"/image", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	resp, body := e.send(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	image, _ := body["data"].(map[string]interface{})["image"].(string)
	assert.True(t, strings.HasSuffix(image, ".png"), image)

	resp, body = e.do(t, fiber.MethodPost, "/api/v1/products/"+p.ID.String()+"/image", fiber.Map{})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "The image field is required.", errorsOf(t, body)["image"])
}

func TestCategoryLifecycle(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/v1/categories", fiber.Map{"name": "Tools"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := body["data"].(map[string]interface{})["id"].(string)

	resp, body = e.do(t, fiber.MethodPost, "/api/v1/categories", fiber.Map{"name": "tools"})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "The name has already been taken.", errorsOf(t, body)["name"])

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/categories?all=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 2)

	resp, _ = e.do(t, fiber.MethodDelete, "/api/v1/categories/"+id, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/activity-logs?model_type="+model.SubjectCategory, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])
}

func TestDashboardEndpoints(t *testing.T) {
	e := newEnv(t)
	testutil.SeedProduct(t, e.db, e.category.ID, "Widget", 3)

	resp, body := e.do(t, fiber.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["low_stock_products"])
	assert.Len(t, body["monthly_summary"], 6)

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/dashboard/stock-movement", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(7), body["period"])
	assert.Len(t, body["data"], 7)

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/dashboard/stock-movement?days=abc", nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, errorsOf(t, body), "days")
}

func TestExportReport(t *testing.T) {
	e := newEnv(t)
	testutil.SeedProduct(t, e.db, e.category.ID, "Widget", 3)

	resp, _ := e.do(t, fiber.MethodGet, "/api/v1/reports/export?format=csv", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `attachment; filename="inventory-report-`)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Widget")

	resp, body := e.do(t, fiber.MethodGet, "/api/v1/reports/export?format=pdf", nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, errorsOf(t, body), "format")

	resp, body = e.do(t, fiber.MethodGet, "/api/v1/reports?from_date=yesterday", nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, errorsOf(t, body), "from_date")
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/v1/auth/login", fiber.Map{"email": e.user.Email, "password": "password123"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	resp, body = e.do(t, fiber.MethodPost, "/api/v1/auth/login", fiber.Map{"email": e.user.Email, "password": "nope"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, service.ErrInvalidCredentials.Error(), body["error"])

	resp, body = e.do(t, fiber.MethodPost, "/api/v1/auth/validate-token", fiber.Map{"token": "garbage"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, jwt.ErrInvalidToken.Error(), body["error"])
}
