package service

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"contest_leaderboard/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusStore 保存比赛阶段；未设置时 Get 返回空串
type StatusStore interface {
	Get(ctx context.Context) (model.ContestStatus, error)
	Set(ctx context.Context, status model.ContestStatus) error
}

type RedisStatusStore struct {
	Redis *redis.Client
	Key   string
}

func NewRedisStatusStore(rdb *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{Redis: rdb, Key: util.ContestStatusKey}
}

func (s *RedisStatusStore) Get(ctx context.Context) (model.ContestStatus, error) {
	val, err := s.Redis.Get(ctx, s.Key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.ContestStatus(val), nil
}

func (s *RedisStatusStore) Set(ctx context.Context, status model.ContestStatus) error {
	return s.Redis.Set(ctx, s.Key, string(status), 0).Err()
}

type TeamStore interface {
	UpdateName(ctx context.Context, teamID, name string) error
	Delete(ctx context.Context, teamID string) error
}

type ScoreboardRefresher interface {
	RefreshScoreboard(ctx context.Context) error
	ApplyTeamEdit(teamID string, edit func(*model.Team)) (model.Team, error)
}

type ContestService struct {
	store     StatusStore
	initial   model.ContestStatus
	teams     TeamStore
	refresher ScoreboardRefresher
	feed      ChangePublisher
	notifier  Notifier
}

func NewContestService(store StatusStore, initial model.ContestStatus, teams TeamStore,
	refresher ScoreboardRefresher, feed ChangePublisher, notifier Notifier) *ContestService {
	return &ContestService{
		store:     store,
		initial:   initial,
		teams:     teams,
		refresher: refresher,
		feed:      feed,
		notifier:  notifier,
	}
}

// Status 当前比赛阶段，存储中没有值时使用配置的初始阶段
func (s *ContestService) Status(ctx context.Context) (model.ContestStatus, error) {
	status, err := s.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if !status.Valid() {
		return s.initial, nil
	}
	return status, nil
}

func (s *ContestService) SetStatus(ctx context.Context, actor *model.Actor, status model.ContestStatus) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown contest status %q", util.ErrMalformedInput, status)
	}
	if err := s.store.Set(ctx, status); err != nil {
		return err
	}

	logger.Log.Info("Contest status changed", zap.String("status", string(status)), zap.String("by", actor.Username))
	s.notifier.Broadcast(LevelInfo, fmt.Sprintf("Contest is now %s", status))
	return nil
}

// Reset 重新开放比赛并做一次完整刷新
func (s *ContestService) Reset(ctx context.Context, actor *model.Actor) error {
	if err := s.SetStatus(ctx, actor, model.ContestLive); err != nil {
		return err
	}
	return s.refresher.RefreshScoreboard(ctx)
}

// UpdateTeam 修改队伍名。先持久化，再就地改写快照并重新排名，下一次刷新给出最终结果。
func (s *ContestService) UpdateTeam(ctx context.Context, actor *model.Actor, teamID, name string) (*model.Team, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", util.ErrMalformedInput)
	}

	if err := s.teams.UpdateName(ctx, teamID, name); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTeamNotFound
		}
		return nil, err
	}

	edited, err := s.refresher.ApplyTeamEdit(teamID, func(team *model.Team) { team.Name = name })
	if err != nil {
		// 快照中还没有这支队伍，等待下一次刷新
		logger.Log.Debug("Team edit not applied to snapshot", zap.String("teamId", teamID), zap.Error(err))
		edited = model.Team{ID: teamID, Name: name}
	}

	event := model.ChangeEvent{
		Table:  model.TableTeams,
		Kind:   model.ChangeUpdate,
		Record: map[string]interface{}{"id": teamID, "name": name},
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish team update", zap.String("teamId", teamID), zap.Error(err))
	}
	logger.Log.Info("Team renamed", zap.String("teamId", teamID), zap.String("name", name), zap.String("by", actor.Username))
	return &edited, nil
}

// DeleteTeam 删除队伍及其全部提交
func (s *ContestService) DeleteTeam(ctx context.Context, actor *model.Actor, teamID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if err := s.teams.Delete(ctx, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTeamNotFound
		}
		return err
	}

	event := model.ChangeEvent{
		Table:  model.TableTeams,
		Kind:   model.ChangeDelete,
		Record: map[string]interface{}{"id": teamID},
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish team deletion", zap.String("teamId", teamID), zap.Error(err))
	}
	return nil
}
