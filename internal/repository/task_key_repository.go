package repository

import (
	"contest_leaderboard/internal/model"
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskKeyRepository struct {
	DB *gorm.DB
}

func NewTaskKeyRepository(db *gorm.DB) *TaskKeyRepository {
	return &TaskKeyRepository{DB: db}
}

// Upsert 写入或覆盖某任务的答案数据
func (r *TaskKeyRepository) Upsert(ctx context.Context, taskID string, rows [][]string) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	key := model.TaskKey{
		TaskID:   taskID,
		Rows:     datatypes.JSON(raw),
		RowCount: len(rows),
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"key_rows", "row_count", "updated_at"}),
	}).Create(&key).Error
}

func (r *TaskKeyRepository) Find(ctx context.Context, taskID string) ([][]string, error) {
	var key model.TaskKey
	if err := r.DB.WithContext(ctx).First(&key, "task_id = ?", taskID).Error; err != nil {
		return nil, err
	}

	var rows [][]string
	if err := json.Unmarshal(key.Rows, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
