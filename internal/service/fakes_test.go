package service

import (
	"contest_leaderboard/internal/model"
	"context"
	"sync"

	"gorm.io/gorm"
)

type recordingFeed struct {
	mu     sync.Mutex
	events []model.ChangeEvent
	err    error
}

func (f *recordingFeed) Publish(ctx context.Context, event model.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type fakeScorer struct {
	score  float64
	err    error
	calls  int
	taskID string
	rows   [][]string
}

func (f *fakeScorer) SubmitSolution(ctx context.Context, userID, taskID string, rows [][]string) (float64, error) {
	f.calls++
	f.taskID = taskID
	f.rows = rows
	return f.score, f.err
}

type fixedPhase model.ContestStatus

func (p fixedPhase) Status(ctx context.Context) (model.ContestStatus, error) {
	return model.ContestStatus(p), nil
}

type memStatusStore struct {
	status model.ContestStatus
}

func (m *memStatusStore) Get(ctx context.Context) (model.ContestStatus, error) {
	return m.status, nil
}

func (m *memStatusStore) Set(ctx context.Context, status model.ContestStatus) error {
	m.status = status
	return nil
}

type memTaskStore struct {
	tasks     map[string]model.Task
	deleteErr error
}

func newMemTaskStore(tasks ...model.Task) *memTaskStore {
	m := &memTaskStore{tasks: make(map[string]model.Task)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *memTaskStore) Create(ctx context.Context, task *model.Task) error {
	m.tasks[task.ID] = *task
	return nil
}

func (m *memTaskStore) FindByID(ctx context.Context, id string) (*model.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (m *memTaskStore) Update(ctx context.Context, task *model.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memTaskStore) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.tasks, id)
	return nil
}

type memKeys struct {
	rows map[string][][]string
}

func (m *memKeys) Upsert(ctx context.Context, taskID string, rows [][]string) error {
	if m.rows == nil {
		m.rows = make(map[string][][]string)
	}
	m.rows[taskID] = rows
	return nil
}

type fakeKeyStore struct {
	putErr    error
	removeErr error
	puts      []string
	removes   []string
	// 上传期间观察到的上传标记
	duringPut func()
}

func (f *fakeKeyStore) PutKey(ctx context.Context, taskID string, content []byte) (string, error) {
	f.puts = append(f.puts, taskID)
	if f.duringPut != nil {
		f.duringPut()
	}
	if f.putErr != nil {
		return "", f.putErr
	}
	return "/uploads/" + model.KeyObjectName(taskID), nil
}

func (f *fakeKeyStore) RemoveKey(ctx context.Context, taskID string) error {
	f.removes = append(f.removes, taskID)
	return f.removeErr
}

type fakeTeams struct {
	deleted   []string
	err       error
	renamed   map[string]string
	renameErr error
}

func (f *fakeTeams) UpdateName(ctx context.Context, teamID, name string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	if f.renamed == nil {
		f.renamed = make(map[string]string)
	}
	f.renamed[teamID] = name
	return nil
}

func (f *fakeTeams) Delete(ctx context.Context, teamID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, teamID)
	return nil
}

var (
	contestant = &model.Actor{ID: "u1", Username: "alice", Role: model.Contestant, TeamName: "NLP Wizards"}
	admin      = &model.Actor{ID: "u0", Username: "root", Role: model.Admin}
)
