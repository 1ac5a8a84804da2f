package service

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"contest_leaderboard/pkg/logger"
	"contest_leaderboard/pkg/monitoring"
	"contest_leaderboard/pkg/tracing"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type ContestPhase interface {
	Status(ctx context.Context) (model.ContestStatus, error)
}

// SubmissionService 校验并转交参赛者的提交。
// 分数、尝试次数和历史由外部评分方写入，本服务只在变更通知或下一次刷新中看到它们。
type SubmissionService struct {
	scorer   Scorer
	contest  ContestPhase
	feed     ChangePublisher
	notifier Notifier
}

func NewSubmissionService(scorer Scorer, contest ContestPhase, feed ChangePublisher, notifier Notifier) *SubmissionService {
	return &SubmissionService{
		scorer:   scorer,
		contest:  contest,
		feed:     feed,
		notifier: notifier,
	}
}

// Submit 先按顺序检查前置条件，再解析校验文件，最后调用评分方
func (s *SubmissionService) Submit(ctx context.Context, actor *model.Actor, taskID string, content []byte) (float64, error) {
	if err := s.checkPreconditions(ctx, actor, taskID, content); err != nil {
		monitoring.SubmissionCounter.WithLabelValues("rejected").Inc()
		return 0, err
	}

	rows, err := ParseAndValidate(string(content))
	if err != nil {
		monitoring.SubmissionCounter.WithLabelValues("invalid").Inc()
		return 0, err
	}

	ctx, span := tracing.Tracer.Start(ctx, "submission.score")
	defer span.End()

	score, err := s.scorer.SubmitSolution(ctx, actor.ID, taskID, rows)
	if err != nil {
		span.RecordError(err)
		monitoring.SubmissionCounter.WithLabelValues("scoring_failed").Inc()
		logger.Log.Error("Scoring failed",
			zap.String("userId", actor.ID),
			zap.String("taskId", taskID),
			zap.Error(err),
		)
		s.notifier.NotifyUser(actor.ID, LevelError, "Submission failed: "+err.Error())
		return 0, fmt.Errorf("%w: %v", util.ErrScoringFailure, err)
	}

	monitoring.SubmissionCounter.WithLabelValues("scored").Inc()
	logger.Log.Info("Submission scored",
		zap.String("team", actor.TeamName),
		zap.String("taskId", taskID),
		zap.Int("rows", len(rows)),
		zap.Float64("score", score),
	)
	s.notifier.NotifyUser(actor.ID, LevelSuccess, fmt.Sprintf("Submission successful! Score: %.2f", score))

	event := model.ChangeEvent{
		Table: model.TableSubmissions,
		Kind:  model.ChangeInsert,
		Record: map[string]interface{}{
			"task_id":   taskID,
			"user_id":   actor.ID,
			"team_name": actor.TeamName,
		},
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish submission change", zap.Error(err))
	}

	return score, nil
}

func (s *SubmissionService) checkPreconditions(ctx context.Context, actor *model.Actor, taskID string, content []byte) error {
	if !actor.IsContestant() {
		return fmt.Errorf("%w: %w: only contestants with a team can submit", util.ErrPreconditionFailed, util.ErrPermissionDenied)
	}

	status, err := s.contest.Status(ctx)
	if err != nil {
		return err
	}
	if status != model.ContestLive {
		return fmt.Errorf("%w: contest is %s", util.ErrPreconditionFailed, status)
	}

	if strings.TrimSpace(taskID) == "" {
		return fmt.Errorf("%w: no task selected", util.ErrPreconditionFailed)
	}
	if len(content) == 0 {
		return fmt.Errorf("%w: no file selected", util.ErrPreconditionFailed)
	}
	return nil
}
