package service

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"contest_leaderboard/pkg/logger"
	"contest_leaderboard/pkg/monitoring"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type KeyStore interface {
	PutKey(ctx context.Context, taskID string, content []byte) (string, error)
	RemoveKey(ctx context.Context, taskID string) error
}

type TaskKeyWriter interface {
	Upsert(ctx context.Context, taskID string, rows [][]string) error
}

type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
}

// KeyService 管理员对任务和答案文件的操作
type KeyService struct {
	tasks    TaskStore
	keys     TaskKeyWriter
	storage  KeyStore
	sync     *ScoreboardSync
	feed     ChangePublisher
	notifier Notifier
}

func NewKeyService(tasks TaskStore, keys TaskKeyWriter, storage KeyStore, sync *ScoreboardSync,
	feed ChangePublisher, notifier Notifier) *KeyService {
	return &KeyService{
		tasks:    tasks,
		keys:     keys,
		storage:  storage,
		sync:     sync,
		feed:     feed,
		notifier: notifier,
	}
}

func (s *KeyService) findTask(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTaskNotFound
	}
	return task, err
}

// UploadKey 上传任务答案。文件先在本地校验，失败时不发起任何网络请求。
// 上传标记在任何结果下都会被清除；上传成功后答案处理器解析入库，
// 已上传标记只在收到 task_keys 变更通知后才改变。
func (s *KeyService) UploadKey(ctx context.Context, actor *model.Actor, taskID string, content []byte) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if strings.TrimSpace(taskID) == "" {
		return fmt.Errorf("%w: no task selected", util.ErrPreconditionFailed)
	}
	if len(content) == 0 {
		return fmt.Errorf("%w: no file selected", util.ErrPreconditionFailed)
	}
	if _, err := s.findTask(ctx, taskID); err != nil {
		return err
	}
	if _, err := ParseAndValidate(string(content)); err != nil {
		monitoring.KeyUploadCounter.WithLabelValues("invalid").Inc()
		return err
	}

	if !s.sync.BeginKeyUpload(taskID) {
		return util.ErrUploadInFlight
	}
	defer s.sync.EndKeyUpload(taskID)

	if _, err := s.storage.PutKey(ctx, taskID, content); err != nil {
		monitoring.KeyUploadCounter.WithLabelValues("error").Inc()
		logger.Log.Error("Failed to upload key", zap.String("taskId", taskID), zap.Error(err))
		s.notifier.NotifyUser(actor.ID, LevelError, "Failed to upload key: "+err.Error())
		return fmt.Errorf("%w: %v", util.ErrUploadFailure, err)
	}

	if err := s.ProcessKey(ctx, model.KeyObjectName(taskID), content); err != nil {
		monitoring.KeyUploadCounter.WithLabelValues("error").Inc()
		s.notifier.NotifyUser(actor.ID, LevelError, "Failed to process key: "+err.Error())
		if errors.Is(err, util.ErrEmptyInput) || errors.Is(err, util.ErrMalformedInput) {
			return err
		}
		return fmt.Errorf("%w: %v", util.ErrUploadFailure, err)
	}

	monitoring.KeyUploadCounter.WithLabelValues("ok").Inc()
	s.notifier.NotifyUser(actor.ID, LevelSuccess, fmt.Sprintf("Key for task %s uploaded successfully", taskID))
	return nil
}

// ProcessKey 答案文件写入对象存储后的处理：解析、去表头、入库并发出变更通知。
// 名字不是 <taskID>.csv 的对象会被忽略。
func (s *KeyService) ProcessKey(ctx context.Context, objectName string, content []byte) error {
	taskID, ok := taskIDFromObject(objectName)
	if !ok {
		logger.Log.Info("Ignoring object with invalid key name", zap.String("object", objectName))
		return nil
	}

	rows, err := ParseAndValidate(string(content))
	if err != nil {
		if errors.Is(err, util.ErrEmptyInput) {
			logger.Log.Warn("Key file has no data rows", zap.String("taskId", taskID))
		} else {
			logger.Log.Error("Key file is malformed", zap.String("taskId", taskID), zap.Error(err))
		}
		return err
	}

	if err := s.keys.Upsert(ctx, taskID, rows); err != nil {
		logger.Log.Error("Failed to store key rows", zap.String("taskId", taskID), zap.Error(err))
		return err
	}
	logger.Log.Info("Key processed", zap.String("taskId", taskID), zap.Int("rows", len(rows)))

	event := model.ChangeEvent{
		Table:  model.TableTaskKeys,
		Kind:   model.ChangeInsert,
		Record: map[string]interface{}{"task_id": taskID},
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish key change", zap.String("taskId", taskID), zap.Error(err))
	}
	return nil
}

func taskIDFromObject(objectName string) (string, bool) {
	base := path.Base(objectName)
	if !strings.HasSuffix(base, util.CSVExtension) {
		return "", false
	}
	taskID := strings.TrimSuffix(base, util.CSVExtension)
	if taskID == "" || strings.HasPrefix(taskID, ".") {
		return "", false
	}
	return taskID, true
}

// DeleteTask 先在本地隐藏任务，再删除任务与答案；最终状态以随后的任务状态刷新为准
func (s *KeyService) DeleteTask(ctx context.Context, actor *model.Actor, taskID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	s.sync.RemoveTaskTentative(taskID)
	defer func() {
		if err := s.sync.ReconcileTaskStatus(ctx); err != nil {
			logger.Log.Warn("Task status reconcile failed", zap.String("taskId", taskID), zap.Error(err))
		}
	}()

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		logger.Log.Error("Failed to delete task", zap.String("taskId", taskID), zap.Error(err))
		s.notifier.NotifyUser(actor.ID, LevelError, "Failed to delete task: "+err.Error())
		return err
	}

	if err := s.storage.RemoveKey(ctx, taskID); err != nil {
		logger.Log.Warn("Failed to remove stored key", zap.String("taskId", taskID), zap.Error(err))
	}

	event := model.ChangeEvent{
		Table:  model.TableTaskKeys,
		Kind:   model.ChangeDelete,
		Record: map[string]interface{}{"task_id": taskID},
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish key change", zap.String("taskId", taskID), zap.Error(err))
	}

	s.notifier.NotifyUser(actor.ID, LevelSuccess, fmt.Sprintf("Task %s deleted", taskID))
	return nil
}

type TaskInput struct {
	ID            string              `json:"id"`
	Name          string              `json:"name" binding:"required"`
	KeyVisibility model.KeyVisibility `json:"keyVisibility"`
}

func (in TaskInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: task name is required", util.ErrMalformedInput)
	}
	if in.KeyVisibility != "" && !in.KeyVisibility.Valid() {
		return fmt.Errorf("%w: unknown key visibility %q", util.ErrMalformedInput, in.KeyVisibility)
	}
	return nil
}

func (s *KeyService) CreateTask(ctx context.Context, actor *model.Actor, in TaskInput) (*model.Task, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" || strings.ContainsAny(in.ID, "/\\.") {
		return nil, fmt.Errorf("%w: invalid task id %q", util.ErrMalformedInput, in.ID)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:            in.ID,
		Name:          strings.TrimSpace(in.Name),
		KeyVisibility: in.KeyVisibility,
	}
	if task.KeyVisibility == "" {
		task.KeyVisibility = model.KeyPrivate
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.sync.AddTaskLocal(*task)
	return task, nil
}

func (s *KeyService) UpdateTask(ctx context.Context, actor *model.Actor, taskID string, in TaskInput) (*model.Task, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.Name = strings.TrimSpace(in.Name)
	if in.KeyVisibility != "" {
		task.KeyVisibility = in.KeyVisibility
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTaskNotFound
		}
		return nil, err
	}

	s.sync.UpdateTaskLocal(*task)
	return task, nil
}
