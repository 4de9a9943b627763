package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category    *Category       `json:"category,omitempty"`
	Name        string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Description *string         `gorm:"type:text" json:"description"`
	Image       *string         `gorm:"type:varchar(255)" json:"image"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`

	// Relasi
	Transactions []Transaction `gorm:"constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
}

// StockStatus buckets used by the product list filter and dashboard
const (
	StockLow       = "low"
	StockOut       = "out"
	StockAvailable = "available"
)

func (p *Product) IsLowStock(threshold int) bool {
	return p.Stock <= threshold
}
