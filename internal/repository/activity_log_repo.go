package repository

import (
	"context"

	"inventrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityLogFilter struct {
	ModelType string
	UserID    *uuid.UUID
	Page      Page
}

// ActivityLogRepository has no update or delete: the log is append-only
type ActivityLogRepository interface {
	Create(tx *gorm.DB, entry *model.ActivityLog) error
	Latest(ctx context.Context, limit int) ([]model.ActivityLog, error)
	List(ctx context.Context, filter ActivityLogFilter) (*Paginated[model.ActivityLog], error)
	ForSubject(ctx context.Context, modelType string, modelID uuid.UUID) ([]model.ActivityLog, error)
}

type activityLogRepo struct {
	db *gorm.DB
}

func NewActivityLogRepo(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{db}
}

func (r *activityLogRepo) Create(tx *gorm.DB, entry *model.ActivityLog) error {
	return tx.Omit("User").Create(entry).Error
}

func (r *activityLogRepo) Latest(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.db.WithContext(ctx).Preload("User").Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (r *activityLogRepo) List(ctx context.Context, filter ActivityLogFilter) (*Paginated[model.ActivityLog], error) {
	query := r.db.WithContext(ctx).Model(&model.ActivityLog{})
	if filter.ModelType != "" {
		query = query.Where("model_type = ?", filter.ModelType)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	return paginate[model.ActivityLog](query, filter.Page, "created_at DESC", "User")
}

func (r *activityLogRepo) ForSubject(ctx context.Context, modelType string, modelID uuid.UUID) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.db.WithContext(ctx).
		Where("model_type = ? AND model_id = ?", modelType, modelID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
