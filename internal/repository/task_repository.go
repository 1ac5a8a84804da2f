package repository

import (
	"contest_leaderboard/internal/model"
	"context"

	"gorm.io/gorm"
)

type TaskRepository struct {
	DB *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.DB.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.DB.WithContext(ctx).First(&task, "id = ?", id).Error
	return &task, err
}

// Update 只更新名称和答案可见性
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// MySQL 在值未变化时 RowsAffected 为 0，先确认任务存在
		var count int64
		if err := tx.Model(&model.Task{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.Task{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"name":           task.Name,
				"key_visibility": task.KeyVisibility,
			}).Error
	})
}

// Delete 删除任务及其答案数据
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskKey{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Task{}).Error
	})
}
