package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel handles ID (UUID) and the created/updated audit columns.
// Rows are hard deleted: a reversed transaction must not linger, and
// category -> product -> transaction cascades are real deletes.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CreatedBy string `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	UpdatedBy string `gorm:"type:varchar(64)" json:"updated_by,omitempty"`
}

// Hook Before Create untuk generate UUID otomatis
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	return
}
