package model

type Category struct {
	BaseModel
	Name        string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`

	// Filled by list queries only
	ProductsCount int64 `gorm:"-" json:"products_count"`

	Products []Product `gorm:"constraint:OnDelete:CASCADE" json:"products,omitempty"`
}
