package repository

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"context"

	"gorm.io/gorm"
)

type TeamRepository struct {
	DB *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{DB: db}
}

func (r *TeamRepository) FindByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.DB.WithContext(ctx).First(&team, "id = ?", id).Error
	return &team, err
}

// UpdateName 修改队伍名并同步成员账号上的冗余队伍名
func (r *TeamRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// MySQL 在值未变化时 RowsAffected 为 0，先确认队伍存在
		var count int64
		if err := tx.Model(&model.Team{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		var taken int64
		if err := tx.Model(&model.Team{}).Where("name = ? AND id <> ?", name, id).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return util.ErrTeamNameExists
		}

		if err := tx.Model(&model.Team{}).Where("id = ?", id).Update("name", name).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("team_id = ?", id).Update("team_name", name).Error
	})
}

// Delete 删除队伍及其提交和历史，成员账号保留但解除队伍关联
func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subQuery := tx.Model(&model.Submission{}).Select("id").Where("team_id = ?", id)
		if err := tx.Where("submission_id IN (?)", subQuery).Delete(&model.SubmissionAttempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", id).Delete(&model.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("team_id = ?", id).
			Updates(map[string]interface{}{"team_id": nil, "team_name": ""}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Team{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
