package handler

import (
	"inventrack/internal/middleware"
	"inventrack/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything mounted under /api/v1
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Role      *RoleHandler
	Category  *CategoryHandler
	Product   *ProductHandler
	Inventory *InventoryHandler
	Dashboard *DashboardHandler
	Report    *ReportHandler
}

// Register mounts the API routes. loginLimit may be nil.
func Register(api fiber.Router, h Handlers, auth middleware.Authenticator, loginLimit fiber.Handler) {
	requirePriv := middleware.RequirePrivilege

	// Public routes
	authGroup := api.Group("/auth")
	if loginLimit != nil {
		authGroup.Post("/login", loginLimit, h.Auth.Login)
	} else {
		authGroup.Post("/login", h.Auth.Login)
	}
	authGroup.Post("/validate-token", h.Auth.ValidateToken)

	// Everything below requires a valid session
	protected := api.Group("", middleware.RequireAuth(auth))
	protected.Post("/auth/change-password", h.Auth.ChangePassword)

	protected.Get("/roles", h.Role.GetRoles)
	protected.Get("/privileges", h.Role.GetPrivileges)

	users := protected.Group("/users")
	users.Get("/", requirePriv(model.PrivUserView), h.User.GetUsers)
	users.Get("/:id", requirePriv(model.PrivUserView), h.User.GetUser)
	users.Post("/", requirePriv(model.PrivUserCreate), h.User.CreateUser)
	users.Put("/:id", requirePriv(model.PrivUserUpdate), h.User.UpdateUser)
	users.Put("/:id/privileges", requirePriv(model.PrivUserUpdate), h.User.UpdateUserPrivileges)
	users.Delete("/:id", requirePriv(model.PrivUserDelete), h.User.DeleteUser)

	protected.Get("/dashboard", requirePriv(model.PrivDashboardView), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", requirePriv(model.PrivDashboardView), h.Dashboard.GetStockMovement)

	categories := protected.Group("/categories")
	categories.Get("/", requirePriv(model.PrivCategoryView), h.Category.GetCategories)
	categories.Get("/:id", requirePriv(model.PrivCategoryView), h.Category.GetCategory)
	categories.Post("/", requirePriv(model.PrivCategoryCreate), h.Category.CreateCategory)
	categories.Put("/:id", requirePriv(model.PrivCategoryUpdate), h.Category.UpdateCategory)
	categories.Delete("/:id", requirePriv(model.PrivCategoryDelete), h.Category.DeleteCategory)

	products := protected.Group("/products")
	products.Get("/", requirePriv(model.PrivProductView), h.Product.GetProducts)
	products.Get("/:id", requirePriv(model.PrivProductView), h.Product.GetProduct)
	products.Post("/", requirePriv(model.PrivProductCreate), h.Product.CreateProduct)
	products.Put("/:id", requirePriv(model.PrivProductUpdate), h.Product.UpdateProduct)
	products.Post("/:id/image", requirePriv(model.PrivProductUpdate), h.Product.UploadImage)
	products.Delete("/:id", requirePriv(model.PrivProductDelete), h.Product.DeleteProduct)

	transactions := protected.Group("/transactions")
	transactions.Get("/", requirePriv(model.PrivTransactionView), h.Inventory.GetTransactions)
	transactions.Get("/:id", requirePriv(model.PrivTransactionView), h.Inventory.GetTransaction)
	transactions.Post("/", requirePriv(model.PrivTransactionCreate), h.Inventory.CreateTransaction)
	transactions.Delete("/:id", requirePriv(model.PrivTransactionDelete), h.Inventory.DeleteTransaction)

	protected.Get("/reports", requirePriv(model.PrivReportView), h.Report.GetReport)
	protected.Get("/reports/export", requirePriv(model.PrivReportExport), h.Report.ExportReport)
	protected.Get("/activity-logs", requirePriv(model.PrivReportView), h.Report.GetActivityLogs)
}
