// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"fmt"
	"testing"

	"inventrack/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a fresh migrated sqlite database private to the test.
// A single connection is used so concurrent units of work queue up the
// same way they would behind a row lock.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(db))
	return db
}

// SeedUser inserts an active user and returns it
func SeedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, FullName: "Test " + email, IsActive: true}
	require.NoError(t, u.SetPassword("password123"))
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedCategory inserts a category with the given name
func SeedCategory(t *testing.T, db *gorm.DB, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name}
	require.NoError(t, db.Create(c).Error)
	return c
}

// SeedProduct inserts a product with the given stock under category
func SeedProduct(t *testing.T, db *gorm.DB, categoryID uuid.UUID, name string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		CategoryID: categoryID,
		Name:       name,
		Stock:      stock,
		Price:      decimal.RequireFromString("1500.00"),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Count returns the number of rows of the model's table
func Count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}
