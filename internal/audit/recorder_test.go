package audit

import (
	"context"
	"errors"
	"testing"

	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRecordWritesEntry(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "audit@example.com")
	logs := repository.NewActivityLogRepo(db)
	rec := NewRecorder(logs)
	subject := uuid.New()

	entry, err := rec.Record(db, Entry{
		UserID:      user.ID,
		Action:      model.ActionCreate,
		ModelType:   model.SubjectCategory,
		ModelID:     subject,
		Description: "Created category: Tools",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)

	stored, err := logs.ForSubject(context.Background(), model.SubjectCategory, subject)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, user.ID, stored[0].UserID)
	assert.Equal(t, "Created category: Tools", stored[0].Description)
}

func TestRecordRejectsIncompleteEntry(t *testing.T) {
	db := testutil.NewDB(t)
	rec := NewRecorder(repository.NewActivityLogRepo(db))

	_, err := rec.Record(db, Entry{Action: "archive", ModelType: model.SubjectProduct})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteEntry)
	assert.Contains(t, err.Error(), "user_id")
	assert.Contains(t, err.Error(), "action")
	assert.Equal(t, int64(0), testutil.Count(t, db, &model.ActivityLog{}))
}

func TestRecordRollsBackWithEnclosingTx(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "rollback@example.com")
	rec := NewRecorder(repository.NewActivityLogRepo(db))
	boom := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := rec.Record(tx, Entry{
			UserID:      user.ID,
			Action:      model.ActionDelete,
			ModelType:   model.SubjectProduct,
			ModelID:     uuid.New(),
			Description: "Deleted product: Saw",
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), testutil.Count(t, db, &model.ActivityLog{}))
}
