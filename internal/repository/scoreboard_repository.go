package repository

import (
	"contest_leaderboard/internal/model"
	"context"

	"gorm.io/gorm"
)

// ScoreboardRepository 读取排行榜与任务状态的完整快照
type ScoreboardRepository struct {
	DB *gorm.DB
}

func NewScoreboardRepository(db *gorm.DB) *ScoreboardRepository {
	return &ScoreboardRepository{DB: db}
}

// FetchScoreboard 所有队伍及其提交、历史记录（按时间升序）
func (r *ScoreboardRepository) FetchScoreboard(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.DB.WithContext(ctx).
		Preload("Submissions", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_id ASC")
		}).
		Preload("Submissions.History", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC, id ASC")
		}).
		Order("name ASC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// FetchTaskStatus 任务列表，KeyUploaded 取决于 task_keys 中是否有记录
func (r *ScoreboardRepository) FetchTaskStatus(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.DB.WithContext(ctx).Order("created_at ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	var keyIDs []string
	if err := r.DB.WithContext(ctx).Model(&model.TaskKey{}).Pluck("task_id", &keyIDs).Error; err != nil {
		return nil, err
	}

	uploaded := make(map[string]bool, len(keyIDs))
	for _, id := range keyIDs {
		uploaded[id] = true
	}
	for i := range tasks {
		tasks[i].KeyUploaded = uploaded[tasks[i].ID]
	}
	return tasks, nil
}
