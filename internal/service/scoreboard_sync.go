package service

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"contest_leaderboard/pkg/logger"
	"contest_leaderboard/pkg/monitoring"
	"contest_leaderboard/pkg/tracing"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	flightScoreboard = "scoreboard"
	flightTaskStatus = "task-status"
)

// ScoreboardSource 提供排行榜与任务状态的完整快照
type ScoreboardSource interface {
	FetchScoreboard(ctx context.Context) ([]model.Team, error)
	FetchTaskStatus(ctx context.Context) ([]model.Task, error)
}

type reaction int

const (
	reactIgnore reaction = iota
	reactRefresh
	reactPatchKey
)

// 变更通知按表名分派
var changeReactions = map[model.ChangeTable]reaction{
	model.TableSubmissions: reactRefresh,
	model.TableUsers:       reactRefresh,
	model.TableTeams:       reactRefresh,
	model.TableTaskKeys:    reactPatchKey,
}

func reactionFor(table model.ChangeTable) reaction {
	return changeReactions[table]
}

// ScoreboardSync 维护本地排行榜与任务状态视图。
//
// 同一时刻每类刷新最多只有一次在途拉取，并发请求共享结果。
// 快照整体替换发布，读者看不到中间状态。拉取失败时保留上一个快照。
type ScoreboardSync struct {
	source       ScoreboardSource
	notifier     Notifier
	fetchTimeout time.Duration
	interval     time.Duration
	intervalCh   chan time.Duration

	flight   singleflight.Group
	snapshot atomic.Pointer[model.ScoreboardSnapshot]
	version  atomic.Uint64

	// 串行化快照发布与观察者回调，观察者收到的版本号严格递增
	publishMu sync.Mutex

	mu        sync.RWMutex
	tasks     []model.Task
	uploading map[string]struct{}
	// 待确认删除的任务 -> 标记时的代数；只有开始于标记之后的拉取才能确认或回滚它
	tentativeDeletes map[string]uint64
	tentativeGen     uint64
	// 任务状态拉取序号，较早开始的拉取不会覆盖较晚拉取已发布的结果
	taskFetchSeq   uint64
	taskAppliedSeq uint64

	obsMu          sync.RWMutex
	boardObservers []func(*model.ScoreboardSnapshot)
	taskObservers  []func(model.TaskBoard)
}

func NewScoreboardSync(source ScoreboardSource, notifier Notifier, interval, fetchTimeout time.Duration) *ScoreboardSync {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s := &ScoreboardSync{
		source:           source,
		notifier:         notifier,
		fetchTimeout:     fetchTimeout,
		interval:         interval,
		intervalCh:       make(chan time.Duration, 1),
		uploading:        make(map[string]struct{}),
		tentativeDeletes: make(map[string]uint64),
	}
	s.snapshot.Store(&model.ScoreboardSnapshot{Teams: []model.Team{}})
	return s
}

// OnScoreboard 注册快照发布回调
func (s *ScoreboardSync) OnScoreboard(fn func(*model.ScoreboardSnapshot)) {
	s.obsMu.Lock()
	s.boardObservers = append(s.boardObservers, fn)
	s.obsMu.Unlock()
}

// OnTasks 注册任务视图变化回调
func (s *ScoreboardSync) OnTasks(fn func(model.TaskBoard)) {
	s.obsMu.Lock()
	s.taskObservers = append(s.taskObservers, fn)
	s.obsMu.Unlock()
}

// Snapshot 当前已发布的排行榜，调用方不得修改
func (s *ScoreboardSync) Snapshot() *model.ScoreboardSnapshot {
	return s.snapshot.Load()
}

// Tasks 当前任务视图，已过滤待确认删除的任务
func (s *ScoreboardSync) Tasks() model.TaskBoard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taskBoardLocked()
}

func (s *ScoreboardSync) taskBoardLocked() model.TaskBoard {
	tasks := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if _, gone := s.tentativeDeletes[t.ID]; gone {
			continue
		}
		tasks = append(tasks, t)
	}
	uploading := make([]string, 0, len(s.uploading))
	for id := range s.uploading {
		uploading = append(uploading, id)
	}
	sort.Strings(uploading)
	return model.TaskBoard{Tasks: tasks, Uploading: uploading}
}

// RefreshScoreboard 拉取完整排行榜并重新排名。已有拉取在途时等待并共享其结果。
func (s *ScoreboardSync) RefreshScoreboard(ctx context.Context) error {
	ch := s.flight.DoChan(flightScoreboard, func() (interface{}, error) {
		return nil, s.fetchScoreboard(ctx)
	})
	return s.await(ctx, "scoreboard", ch)
}

// RefreshTaskStatus 拉取任务列表与答案上传标记，结果是权威的
func (s *ScoreboardSync) RefreshTaskStatus(ctx context.Context) error {
	ch := s.flight.DoChan(flightTaskStatus, func() (interface{}, error) {
		return nil, s.fetchTaskStatus(ctx)
	})
	return s.await(ctx, "task_status", ch)
}

// ReconcileTaskStatus 放弃加入已在途的状态拉取，重新拉取一次，
// 保证结果反映调用之前完成的所有写入
func (s *ScoreboardSync) ReconcileTaskStatus(ctx context.Context) error {
	s.flight.Forget(flightTaskStatus)
	return s.RefreshTaskStatus(ctx)
}

func (s *ScoreboardSync) await(ctx context.Context, kind string, ch <-chan singleflight.Result) error {
	select {
	case res := <-ch:
		if res.Shared {
			monitoring.ScoreboardRefreshCounter.WithLabelValues(kind, "shared").Inc()
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// 在途拉取不随某个调用方的取消而中断，只受 fetchTimeout 限制
func (s *ScoreboardSync) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
}

func (s *ScoreboardSync) fetchScoreboard(ctx context.Context) error {
	fctx, cancel := s.fetchContext(ctx)
	defer cancel()
	fctx, span := tracing.Tracer.Start(fctx, "scoreboard.refresh")
	defer span.End()

	start := time.Now()
	teams, err := s.source.FetchScoreboard(fctx)
	if err != nil {
		span.RecordError(err)
		monitoring.ScoreboardRefreshCounter.WithLabelValues("scoreboard", "error").Inc()
		logger.Log.Error("Failed to fetch scoreboard", zap.Error(err))
		s.notifier.Broadcast(LevelError, "Failed to load scoreboard data")
		return fmt.Errorf("%w: %v", util.ErrSyncFailure, err)
	}

	s.publish(teams)
	monitoring.ScoreboardRefreshDuration.Observe(time.Since(start).Seconds())
	monitoring.ScoreboardRefreshCounter.WithLabelValues("scoreboard", "ok").Inc()
	return nil
}

func (s *ScoreboardSync) publish(teams []model.Team) *model.ScoreboardSnapshot {
	ranked := RankTeams(teams)

	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	return s.publishLocked(ranked)
}

// 调用方持有 publishMu
func (s *ScoreboardSync) publishLocked(ranked []model.Team) *model.ScoreboardSnapshot {
	snap := &model.ScoreboardSnapshot{
		Version:     s.version.Add(1),
		Teams:       ranked,
		Stats:       ComputeStats(ranked),
		RefreshedAt: time.Now(),
	}
	s.snapshot.Store(snap)

	s.obsMu.RLock()
	observers := s.boardObservers
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(snap)
	}
	return snap
}

func (s *ScoreboardSync) fetchTaskStatus(ctx context.Context) error {
	fctx, cancel := s.fetchContext(ctx)
	defer cancel()
	fctx, span := tracing.Tracer.Start(fctx, "scoreboard.task_status")
	defer span.End()

	s.mu.Lock()
	s.taskFetchSeq++
	seq, gen := s.taskFetchSeq, s.tentativeGen
	s.mu.Unlock()

	tasks, err := s.source.FetchTaskStatus(fctx)
	if err != nil {
		span.RecordError(err)
		monitoring.ScoreboardRefreshCounter.WithLabelValues("task_status", "error").Inc()
		logger.Log.Error("Failed to fetch task status", zap.Error(err))
		s.notifier.Broadcast(LevelError, "Failed to load task status")
		return fmt.Errorf("%w: %v", util.ErrSyncFailure, err)
	}

	s.mu.Lock()
	if seq < s.taskAppliedSeq {
		s.mu.Unlock()
		logger.Log.Debug("Discarding stale task status", zap.Uint64("seq", seq))
		return nil
	}
	s.taskAppliedSeq = seq
	changed := !sameTasks(s.tasks, tasks)
	for id, markedAt := range s.tentativeDeletes {
		if markedAt <= gen {
			delete(s.tentativeDeletes, id)
			changed = true
		}
	}
	s.tasks = tasks
	board := s.taskBoardLocked()
	s.mu.Unlock()

	monitoring.ScoreboardRefreshCounter.WithLabelValues("task_status", "ok").Inc()
	if changed {
		s.emitTasks(board)
	}
	return nil
}

func sameTasks(a, b []model.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name ||
			a[i].KeyVisibility != b[i].KeyVisibility || a[i].KeyUploaded != b[i].KeyUploaded {
			return false
		}
	}
	return true
}

func (s *ScoreboardSync) emitTasks(board model.TaskBoard) {
	s.obsMu.RLock()
	observers := s.taskObservers
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(board)
	}
}

// OnChange 处理一条变更通知。刷新类通知同步等待刷新完成。
func (s *ScoreboardSync) OnChange(ctx context.Context, event model.ChangeEvent) error {
	monitoring.ChangeEventCounter.WithLabelValues(string(event.Table), string(event.Kind)).Inc()

	switch reactionFor(event.Table) {
	case reactRefresh:
		if event.Table == model.TableSubmissions {
			s.notifier.Broadcast(LevelInfo, "New submission received. Scoreboard updated.")
		}
		return s.RefreshScoreboard(ctx)
	case reactPatchKey:
		taskID := event.TaskID()
		if taskID == "" {
			logger.Log.Debug("Task key change without task_id", zap.String("kind", string(event.Kind)))
			return nil
		}
		s.setKeyUploaded(taskID, event.Kind != model.ChangeDelete)
		return nil
	default:
		logger.Log.Debug("Ignoring change event", zap.String("table", string(event.Table)))
		return nil
	}
}

func (s *ScoreboardSync) setKeyUploaded(taskID string, uploaded bool) {
	s.mu.Lock()
	found := false
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			found = s.tasks[i].KeyUploaded != uploaded
			s.tasks[i].KeyUploaded = uploaded
			break
		}
	}
	board := s.taskBoardLocked()
	s.mu.Unlock()

	if found {
		s.emitTasks(board)
	}
}

// Run 启动时做一次完整同步，之后处理变更通知并按间隔定期刷新，直到 ctx 结束。
// 刷新在后台协程中执行，突发的通知会被合并为一次拉取。
func (s *ScoreboardSync) Run(ctx context.Context, events <-chan model.ChangeEvent) {
	var wg sync.WaitGroup
	defer wg.Wait()

	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	refreshAll := func() {
		spawn(func() { s.RefreshScoreboard(ctx) })
		spawn(func() { s.RefreshTaskStatus(ctx) })
	}

	refreshAll()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-s.intervalCh:
			ticker.Reset(d)
			logger.Log.Info("Scoreboard refresh interval changed", zap.Duration("interval", d))
		case <-ticker.C:
			refreshAll()
		case event, ok := <-events:
			if !ok {
				// 通知通道关闭后只依赖定期刷新
				logger.Log.Warn("Change feed closed, falling back to periodic refresh")
				events = nil
				continue
			}
			if reactionFor(event.Table) == reactRefresh {
				spawn(func() { s.OnChange(ctx, event) })
			} else {
				s.OnChange(ctx, event)
			}
		}
	}
}

// SetRefreshInterval 运行时调整定期刷新间隔
func (s *ScoreboardSync) SetRefreshInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case s.intervalCh <- d:
	default:
		// 丢弃尚未生效的旧值
		select {
		case <-s.intervalCh:
		default:
		}
		select {
		case s.intervalCh <- d:
		default:
		}
	}
}

// BeginKeyUpload 标记任务正在上传答案；已在上传中返回 false
func (s *ScoreboardSync) BeginKeyUpload(taskID string) bool {
	s.mu.Lock()
	if _, busy := s.uploading[taskID]; busy {
		s.mu.Unlock()
		return false
	}
	s.uploading[taskID] = struct{}{}
	board := s.taskBoardLocked()
	s.mu.Unlock()

	s.emitTasks(board)
	return true
}

// EndKeyUpload 清除上传标记，无论上传成功与否都必须调用
func (s *ScoreboardSync) EndKeyUpload(taskID string) {
	s.mu.Lock()
	delete(s.uploading, taskID)
	board := s.taskBoardLocked()
	s.mu.Unlock()

	s.emitTasks(board)
}

func (s *ScoreboardSync) IsUploading(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, busy := s.uploading[taskID]
	return busy
}

func (s *ScoreboardSync) UploadingTasks() []string {
	return s.Tasks().Uploading
}

// AddTaskLocal 新建任务后立即加入本地视图
func (s *ScoreboardSync) AddTaskLocal(task model.Task) {
	s.mu.Lock()
	for _, t := range s.tasks {
		if t.ID == task.ID {
			s.mu.Unlock()
			return
		}
	}
	s.tasks = append(s.tasks, task)
	board := s.taskBoardLocked()
	s.mu.Unlock()

	s.emitTasks(board)
}

// UpdateTaskLocal 更新名称与可见性，保留本地的上传标记
func (s *ScoreboardSync) UpdateTaskLocal(task model.Task) {
	s.mu.Lock()
	found := false
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i].Name = task.Name
			s.tasks[i].KeyVisibility = task.KeyVisibility
			found = true
			break
		}
	}
	board := s.taskBoardLocked()
	s.mu.Unlock()

	if found {
		s.emitTasks(board)
	}
}

// RemoveTaskTentative 在确认删除前先从视图中隐藏任务，标记之后开始的下一次任务状态拉取会给出最终结果
func (s *ScoreboardSync) RemoveTaskTentative(taskID string) {
	s.mu.Lock()
	s.tentativeGen++
	s.tentativeDeletes[taskID] = s.tentativeGen
	board := s.taskBoardLocked()
	s.mu.Unlock()

	s.emitTasks(board)
}

// ApplyTeamEdit 在最新快照中修改一支队伍的副本并重新排名，返回修改后的队伍。
// 读取与发布都在 publishMu 内完成，不会覆盖并发刷新的结果。
func (s *ScoreboardSync) ApplyTeamEdit(teamID string, edit func(*model.Team)) (model.Team, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	current := s.Snapshot()
	teams := make([]model.Team, len(current.Teams))
	copy(teams, current.Teams)

	for i := range teams {
		if teams[i].ID != teamID {
			continue
		}
		edited := teams[i].Clone()
		edit(&edited)
		edited.ID = teamID
		teams[i] = edited
		s.publishLocked(RankTeams(teams))
		return edited, nil
	}
	return model.Team{}, util.ErrTeamNotFound
}
