package controller

import (
	"bytes"
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/service"
	"contest_leaderboard/internal/util"
	"contest_leaderboard/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubSource struct{}

func (stubSource) FetchScoreboard(ctx context.Context) ([]model.Team, error) {
	s := 80.0
	return []model.Team{
		{ID: "t2", Name: "Beta", TotalScore: 50},
		{ID: "t1", Name: "Alpha", TotalScore: 80, Submissions: []model.Submission{{TaskID: "T1", Score: &s, Attempts: 2}}},
	}, nil
}

func (stubSource) FetchTaskStatus(ctx context.Context) ([]model.Task, error) {
	return []model.Task{{ID: "T1", Name: "Task A", KeyVisibility: model.KeyPrivate}}, nil
}

type stubScorer struct{ calls int }

func (s *stubScorer) SubmitSolution(ctx context.Context, userID, taskID string, rows [][]string) (float64, error) {
	s.calls++
	return float64(len(rows)), nil
}

type memStatus struct{ status model.ContestStatus }

func (m *memStatus) Get(ctx context.Context) (model.ContestStatus, error) { return m.status, nil }

func (m *memStatus) Set(ctx context.Context, status model.ContestStatus) error {
	m.status = status
	return nil
}

type nopFeed struct{}

func (nopFeed) Publish(ctx context.Context, event model.ChangeEvent) error { return nil }

type memTeams struct{ names map[string]string }

func (m *memTeams) UpdateName(ctx context.Context, teamID, name string) error {
	if _, ok := m.names[teamID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for id, n := range m.names {
		if n == name && id != teamID {
			return util.ErrTeamNameExists
		}
	}
	m.names[teamID] = name
	return nil
}

func (m *memTeams) Delete(ctx context.Context, teamID string) error { return nil }

type memUsers struct{ users []*model.User }

func (m *memUsers) Create(ctx context.Context, user *model.User) error {
	for _, u := range m.users {
		if user.TeamName != "" && u.TeamName == user.TeamName {
			return util.ErrTeamNameExists
		}
	}
	user.ID = fmt.Sprintf("u%d", len(m.users)+1)
	m.users = append(m.users, user)
	return nil
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fixture struct {
	router *gin.Engine
	status *memStatus
	scorer *stubScorer
	sync   *service.ScoreboardSync
	teams  *memTeams
}

// asActor 模拟认证中间件注入身份
func asActor(actor *model.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor != nil {
			c.Set("user", &util.Claims{UserID: actor.ID, Username: actor.Username, Role: actor.Role, TeamName: actor.TeamName})
		}
		c.Next()
	}
}

func newFixture(t *testing.T, actor *model.Actor) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	notifier := service.NewNotificationCenter()
	sync := service.NewScoreboardSync(stubSource{}, notifier, time.Hour, time.Second)
	require.NoError(t, sync.RefreshScoreboard(context.Background()))
	require.NoError(t, sync.RefreshTaskStatus(context.Background()))

	f := &fixture{
		status: &memStatus{status: model.ContestLive},
		scorer: &stubScorer{},
		sync:   sync,
		teams:  &memTeams{names: map[string]string{"t1": "Alpha", "t2": "Beta"}},
	}
	contest := service.NewContestService(f.status, model.ContestLive, f.teams, sync, nopFeed{}, notifier)
	submissions := service.NewSubmissionService(f.scorer, contest, nopFeed{}, notifier)

	scoreboard := NewScoreboardController(sync, nil)
	contestCtl := NewContestController(contest)
	submissionCtl := NewSubmissionController(submissions)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", ExpireTime: time.Hour}}
	authCtl := NewAuthController(service.NewAuthService(&memUsers{}, nopFeed{}, cfg))

	r := gin.New()
	r.Use(asActor(actor))
	r.GET("/api/scoreboard", scoreboard.GetScoreboard)
	r.GET("/api/scoreboard/stats", scoreboard.GetStats)
	r.GET("/api/tasks", scoreboard.GetTasks)
	r.GET("/api/contest/status", contestCtl.GetStatus)
	r.PUT("/api/admin/contest/status", contestCtl.SetStatus)
	r.POST("/api/submissions", submissionCtl.Submit)
	r.POST("/api/register", authCtl.Register)
	r.PUT("/api/admin/teams/:id", contestCtl.UpdateTeam)
	f.router = r
	return f
}

func (f *fixture) do(req *http.Request) (*httptest.ResponseRecorder, util.Response) {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var resp util.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func submissionRequest(t *testing.T, taskID, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("taskId", taskID))
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		part.Write([]byte(content))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/submissions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var (
	alice = &model.Actor{ID: "u1", Username: "alice", Role: model.Contestant, TeamName: "Alpha"}
	root  = &model.Actor{ID: "u0", Username: "root", Role: model.Admin}
)

func TestGetScoreboard(t *testing.T) {
	f := newFixture(t, nil)

	w, _ := f.do(httptest.NewRequest(http.MethodGet, "/api/scoreboard", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Version uint64 `json:"version"`
			Teams   []struct {
				ID   string `json:"id"`
				Rank int    `json:"rank"`
			} `json:"teams"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Data.Version)
	require.Len(t, resp.Data.Teams, 2)
	assert.Equal(t, "t1", resp.Data.Teams[0].ID)
	assert.Equal(t, 1, resp.Data.Teams[0].Rank)

	w, _ = f.do(httptest.NewRequest(http.MethodGet, "/api/scoreboard/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalSubmissions":2`)

	w, _ = f.do(httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Task A"`)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, alice)

	w, resp := f.do(submissionRequest(t, "T1", "answers.csv", "category_id,content,overall_band_score\n1,a,5\n2,b,6"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]interface{}{"taskId": "T1", "score": 2.0}, resp.Data)
	assert.Equal(t, 1, f.scorer.calls)
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name     string
		actor    *model.Actor
		status   model.ContestStatus
		taskID   string
		filename string
		content  string
		code     int
	}{
		{"malformed rows", alice, model.ContestLive, "T1", "a.csv", "1,2", http.StatusBadRequest},
		{"contest finished", alice, model.ContestFinished, "T1", "a.csv", "1,2", http.StatusBadRequest},
		{"missing file", alice, model.ContestLive, "T1", "", "", http.StatusBadRequest},
		{"wrong extension", alice, model.ContestLive, "T1", "a.txt", "1,2,3", http.StatusBadRequest},
		{"admin cannot submit", root, model.ContestLive, "T1", "a.csv", "1,2,3", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.actor)
			f.status.status = tt.status

			w, _ := f.do(submissionRequest(t, tt.taskID, tt.filename, tt.content))
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Zero(t, f.scorer.calls)
		})
	}
}

func TestContestStatusEndpoints(t *testing.T) {
	f := newFixture(t, root)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/contest/status", bytes.NewBufferString(`{"status":"Finished"}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := f.do(httptest.NewRequest(http.MethodGet, "/api/contest/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"status": "Finished"}, resp.Data)

	req = httptest.NewRequest(http.MethodPut, "/api/admin/contest/status", bytes.NewBufferString(`{"status":"Paused"}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegisterEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	w, resp := f.do(jsonRequest(http.MethodPost, "/api/register",
		`{"username":"carol","email":"carol@example.com","password":"s3cret!","teamName":"Gamma"}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "carol", data["username"])
	assert.Equal(t, "contestant", data["role"])
	assert.Equal(t, "Gamma", data["teamName"])
	assert.NotContains(t, w.Body.String(), "s3cret!")

	tests := []struct {
		name string
		body string
		code int
	}{
		{"duplicate username", `{"username":"carol","email":"c2@example.com","password":"s3cret!","teamName":"Delta"}`, http.StatusConflict},
		{"duplicate team", `{"username":"dan","email":"dan@example.com","password":"s3cret!","teamName":"Gamma"}`, http.StatusConflict},
		{"missing team name", `{"username":"erin","email":"erin@example.com","password":"s3cret!"}`, http.StatusBadRequest},
		{"bad email", `{"username":"erin","email":"nope","password":"s3cret!","teamName":"Eps"}`, http.StatusBadRequest},
		{"unknown role", `{"username":"erin","email":"erin@example.com","password":"s3cret!","teamName":"Eps","role":"judge"}`, http.StatusBadRequest},
		{"admin disabled", `{"username":"boss","email":"boss@example.com","password":"s3cret!","role":"admin"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := f.do(jsonRequest(http.MethodPost, "/api/register", tt.body))
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestUpdateTeamEndpoint(t *testing.T) {
	f := newFixture(t, root)

	w, resp := f.do(jsonRequest(http.MethodPut, "/api/admin/teams/t2", `{"name":"Beta Prime"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Beta Prime", data["name"])
	assert.Equal(t, "Beta Prime", f.teams.names["t2"])

	snap := f.sync.Snapshot()
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, "Beta Prime", snap.Teams[1].Name)

	w, _ = f.do(jsonRequest(http.MethodPut, "/api/admin/teams/t2", `{"name":"Alpha"}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = f.do(jsonRequest(http.MethodPut, "/api/admin/teams/missing", `{"name":"Ghost"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.do(jsonRequest(http.MethodPut, "/api/admin/teams/t2", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTeamRequiresAdmin(t *testing.T) {
	f := newFixture(t, alice)

	w, _ := f.do(jsonRequest(http.MethodPut, "/api/admin/teams/t1", `{"name":"Mine"}`))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Alpha", f.teams.names["t1"])
}
