package model

import "strings"

// Privilege is a "resource:action" permission
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Group returns the resource part of the code
func (p Privilege) Group() string {
	group, _, _ := strings.Cut(p.Code, ":")
	return group
}

const (
	PrivCategoryView      = "category:view"
	PrivCategoryCreate    = "category:create"
	PrivCategoryUpdate    = "category:update"
	PrivCategoryDelete    = "category:delete"
	PrivProductView       = "product:view"
	PrivProductCreate     = "product:create"
	PrivProductUpdate     = "product:update"
	PrivProductDelete     = "product:delete"
	PrivTransactionView   = "transaction:view"
	PrivTransactionCreate = "transaction:create"
	PrivTransactionDelete = "transaction:delete"
	PrivReportView        = "report:view"
	PrivReportExport      = "report:export"
	PrivDashboardView     = "dashboard:view"
	PrivUserView          = "user:view"
	PrivUserCreate        = "user:create"
	PrivUserUpdate        = "user:update"
	PrivUserDelete        = "user:delete"
)

var DefaultPrivileges = []Privilege{
	// Catalog
	{Code: PrivCategoryView, Name: "View Category"},
	{Code: PrivCategoryCreate, Name: "Create Category"},
	{Code: PrivCategoryUpdate, Name: "Update Category"},
	{Code: PrivCategoryDelete, Name: "Delete Category"},
	{Code: PrivProductView, Name: "View Product"},
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivProductUpdate, Name: "Update Product"},
	{Code: PrivProductDelete, Name: "Delete Product"},
	// Stock movements
	{Code: PrivTransactionView, Name: "View Transaction"},
	{Code: PrivTransactionCreate, Name: "Create Transaction"},
	{Code: PrivTransactionDelete, Name: "Delete Transaction"},
	// Reporting
	{Code: PrivReportView, Name: "View Report"},
	{Code: PrivReportExport, Name: "Export Report"},
	{Code: PrivDashboardView, Name: "View Dashboard"},
	// User management (MASTER_ADMIN only)
	{Code: PrivUserView, Name: "View User"},
	{Code: PrivUserCreate, Name: "Create User"},
	{Code: PrivUserUpdate, Name: "Update User"},
	{Code: PrivUserDelete, Name: "Delete User"},
}
