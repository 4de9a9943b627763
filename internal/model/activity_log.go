package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
)

// Subject type names stored in activity_logs.model_type
const (
	SubjectCategory    = "Category"
	SubjectProduct     = "Product"
	SubjectTransaction = "Transaction"
)

// ActivityLog is append-only: no UpdatedAt, never updated or deleted
type ActivityLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User       `json:"user,omitempty"`
	Action      AuditAction `gorm:"type:varchar(20);not null" json:"action"`
	ModelType   string      `gorm:"type:varchar(50);not null;index:idx_activity_subject" json:"model_type"`
	ModelID     uuid.UUID   `gorm:"type:uuid;not null;index:idx_activity_subject" json:"model_id"`
	Description string      `gorm:"type:varchar(255);not null" json:"description"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
