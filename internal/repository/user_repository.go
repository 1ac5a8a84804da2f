package repository

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create 创建账号；TeamName 非空且未关联队伍时在同一事务中建队并关联
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if user.TeamName != "" && user.TeamID == nil {
			var existing model.Team
			err := tx.Where("name = ?", user.TeamName).First(&existing).Error
			if err == nil {
				return util.ErrTeamNameExists
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			team := model.Team{ID: uuid.New().String(), Name: user.TeamName}
			if err := tx.Create(&team).Error; err != nil {
				return err
			}
			user.TeamID = &team.ID
		}
		return tx.Create(user).Error
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	return &user, err
}

// FindByLogin 用户名或邮箱登录
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error
	return &user, err
}
