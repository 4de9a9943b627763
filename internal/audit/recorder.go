// Package audit appends activity log entries inside the caller's database
// transaction so the entry commits or rolls back with the change it describes.
package audit

import (
	"errors"
	"fmt"

	"inventrack/internal/model"
	"inventrack/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrIncompleteEntry means a required Entry field was left empty
var ErrIncompleteEntry = errors.New("incomplete audit entry")

type Entry struct {
	UserID      uuid.UUID
	Action      model.AuditAction
	ModelType   string
	ModelID     uuid.UUID
	Description string
}

func (e Entry) validate() error {
	var missing []string
	if e.UserID == uuid.Nil {
		missing = append(missing, "user_id")
	}
	switch e.Action {
	case model.ActionCreate, model.ActionUpdate, model.ActionDelete:
	default:
		missing = append(missing, "action")
	}
	if e.ModelType == "" {
		missing = append(missing, "model_type")
	}
	if e.ModelID == uuid.Nil {
		missing = append(missing, "model_id")
	}
	if e.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncompleteEntry, missing)
	}
	return nil
}

type Recorder interface {
	Record(tx *gorm.DB, entry Entry) (*model.ActivityLog, error)
}

type recorder struct {
	logs repository.ActivityLogRepository
}

func NewRecorder(logs repository.ActivityLogRepository) Recorder {
	return &recorder{logs: logs}
}

// Record writes one entry on tx. A storage error is returned unchanged so
// the enclosing transaction rolls back.
func (r *recorder) Record(tx *gorm.DB, entry Entry) (*model.ActivityLog, error) {
	if err := entry.validate(); err != nil {
		return nil, err
	}

	row := &model.ActivityLog{
		UserID:      entry.UserID,
		Action:      entry.Action,
		ModelType:   entry.ModelType,
		ModelID:     entry.ModelID,
		Description: entry.Description,
	}
	if err := r.logs.Create(tx, row); err != nil {
		return nil, fmt.Errorf("write activity log: %w", err)
	}
	return row, nil
}
