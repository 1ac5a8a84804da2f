package service

import (
	"contest_leaderboard/internal/config"
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"contest_leaderboard/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByLogin(ctx context.Context, login string) (*model.User, error)
}

// AuthService 会话提供方：校验密码并签发携带 {id, username, role, teamName} 的令牌
type AuthService struct {
	UserRepo UserStore
	Feed     ChangePublisher
	Cfg      *config.Config
}

func NewAuthService(userRepo UserStore, feed ChangePublisher, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Feed:     feed,
		Cfg:      cfg,
	}
}

// RegisterInput 注册表单。参赛者必须填写队伍名，注册时同时建队。
type RegisterInput struct {
	Username string
	Email    string
	Password string
	TeamName string
	Role     model.UserRole
}

// Register 创建账号，密码以 bcrypt 哈希保存，成功后发布 users 变更让排行榜出现新队伍
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.TeamName = strings.TrimSpace(in.TeamName)
	if in.Role == "" {
		in.Role = model.Contestant
	}
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", util.ErrMalformedInput)
	}

	switch in.Role {
	case model.Contestant:
		if in.TeamName == "" {
			return nil, fmt.Errorf("%w: team name is required for contestants", util.ErrPreconditionFailed)
		}
	case model.Admin:
		if !s.Cfg.Auth.AllowAdminRegistration {
			return nil, fmt.Errorf("%w: admin registration is disabled", util.ErrPermissionDenied)
		}
		// 管理员不属于任何队伍，不出现在排行榜上
		in.TeamName = ""
	default:
		return nil, fmt.Errorf("%w: unknown role %q", util.ErrMalformedInput, in.Role)
	}

	for _, login := range []string{in.Username, in.Email} {
		_, err := s.UserRepo.FindByLogin(ctx, login)
		if err == nil {
			return nil, util.ErrUsernameExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashedPassword),
		Role:     in.Role,
		TeamName: in.TeamName,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	event := model.ChangeEvent{
		Table:  model.TableUsers,
		Kind:   model.ChangeInsert,
		Record: map[string]interface{}{"id": user.ID, "team_name": user.TeamName},
	}
	if err := s.Feed.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish user change", zap.String("userId", user.ID), zap.Error(err))
	}
	logger.Log.Info("User registered", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return user, nil
}

// Login 用户名或邮箱登录
func (s *AuthService) Login(ctx context.Context, login, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByLogin(ctx, login)
	if err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Profile(ctx context.Context, actor *model.Actor) (*model.User, error) {
	if actor == nil {
		return nil, util.ErrUserNotFound
	}
	user, err := s.UserRepo.FindByID(ctx, actor.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}
